package relation

import "fmt"

// CascadeOp names one step of a decomposed relation write.
type CascadeOp string

const (
	CascadeDisconnect CascadeOp = "disconnect"
	CascadeRemove     CascadeOp = "remove"
	CascadeSet        CascadeOp = "set"
	CascadeCreate     CascadeOp = "create"
	CascadeUpsert     CascadeOp = "upsert"
	CascadeConnect    CascadeOp = "connect"
)

// CascadeStep is one unit of cascaded work against Relation.
type CascadeStep struct {
	Op       CascadeOp
	Relation string
	Data     any
}

// cascadeOrder is the mandated execution order for a relation write
// document: disconnects, removes, set/updates,
// creates/upserts, connects. Applying disconnects and removes before
// creates/connects keeps unique-index slots (e.g. a one-to-one pointer,
// or a manyToMany link row) free for what follows in the same write.
var cascadeOrder = []struct {
	key string
	op  CascadeOp
}{
	{"$disconnect", CascadeDisconnect},
	{"$remove", CascadeRemove},
	{"$set", CascadeSet},
	{"$create", CascadeCreate},
	{"$upsert", CascadeUpsert},
	{"$connect", CascadeConnect},
}

// DecomposeWrite splits a relation write document (the value of a
// relation field in a create/update payload) into CascadeSteps ordered
// per cascadeOrder. Keys absent from doc contribute no step.
func DecomposeWrite(relationName string, doc map[string]any) []CascadeStep {
	steps := make([]CascadeStep, 0, len(cascadeOrder))
	for _, o := range cascadeOrder {
		if v, ok := doc[o.key]; ok {
			steps = append(steps, CascadeStep{Op: o.op, Relation: relationName, Data: v})
		}
	}
	return steps
}

// ReciprocalOneToOneDisconnect returns the disconnect step that must run
// before connecting newChildID into a one-to-one relation, so the
// reciprocal pointer on newChildID (if it already points elsewhere) is
// cleared first and the relation stays single-valued on both sides.
func ReciprocalOneToOneDisconnect(relationName string, newChildID any) CascadeStep {
	return CascadeStep{
		Op:       CascadeDisconnect,
		Relation: relationName,
		Data:     map[string]any{"where": map[string]any{"id": newChildID}},
	}
}

func (s CascadeStep) String() string {
	return fmt.Sprintf("%s(%s)", s.Op, s.Relation)
}
