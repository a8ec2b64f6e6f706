// ABOUTME: Catalog entries returned by the backend: strategy kinds and model/validation types.
// ABOUTME: These are the normalized shapes the gateway produces from the wire responses.
package catalog

// Strategy groups as reported by get-supported-strategies.
const (
	GroupUnimodal = "Unimodal"
	GroupFusion   = "Fusion"
)

// StrategyDescriptor is a selectable strategy kind.
type StrategyDescriptor struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	Description string `json:"description"`
}

// Key identifies the descriptor inside a Resolver.
func (s StrategyDescriptor) Key() string { return s.Name }

// ModelTypeDescriptor is a selectable model type or validation method.
type ModelTypeDescriptor struct {
	ID          string `json:"id"`
	Group       string `json:"group,omitempty"`
	Description string `json:"description"`
	Library     string `json:"library,omitempty"`
	Params      Params `json:"params"`
}

func (m ModelTypeDescriptor) Key() string { return m.ID }

// GroupBy splits descriptors by group, keeping first-seen group order.
func GroupBy[T any](items []T, group func(T) string) (order []string, groups map[string][]T) {
	groups = make(map[string][]T)
	for _, it := range items {
		g := group(it)
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], it)
	}
	return order, groups
}
