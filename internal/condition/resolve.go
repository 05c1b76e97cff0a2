package condition

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Category names a resource kind served by the entity store.
type Category string

const (
	CategoryHostGroup Category = "hostgroup"
	CategoryHost      Category = "host"
	CategoryTrigger   Category = "trigger"
	CategoryTemplate  Category = "template"
	CategoryProxy     Category = "proxy"
	CategoryDRule     Category = "drule"
	CategoryDCheck    Category = "dcheck"
	CategoryService   Category = "service"
)

// Categories lists every category in lookup order.
var Categories = []Category{
	CategoryHostGroup, CategoryHost, CategoryTrigger, CategoryTemplate,
	CategoryProxy, CategoryDRule, CategoryDCheck, CategoryService,
}

// Entity is the part of a stored record needed for display.
// Parent carries the owning object name: the host of a trigger or the rule of a check.
type Entity struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// DisplayName formats an entity the way conditions show it.
func (e Entity) DisplayName() string {
	if e.Parent == "" {
		return e.Name
	}
	return e.Parent + ": " + e.Name
}

// EntityStore looks up entities by id. Ids missing from the result are not an error.
type EntityStore interface {
	Get(ctx context.Context, category Category, ids []uint64) (map[uint64]Entity, error)
}

var categoryByType = map[ConditionType]Category{
	TypeHostGroup: CategoryHostGroup,
	TypeHost:      CategoryHost,
	TypeTrigger:   CategoryTrigger,
	TypeTemplate:  CategoryTemplate,
	TypeProxy:     CategoryProxy,
	TypeDRule:     CategoryDRule,
	TypeDCheck:    CategoryDCheck,
	TypeService:   CategoryService,
}

// CategoryOf returns the entity category referenced by a condition type.
func CategoryOf(t ConditionType) (Category, bool) {
	c, ok := categoryByType[t]
	return c, ok
}

// ResolveValues returns, for every condition of every action, the value to display.
// The result is indexed [action][condition]. All ids of one category across all actions
// are fetched with a single store call; the calls for different categories run concurrently.
func ResolveValues(ctx context.Context, store EntityStore, loc Localizer, actions []Action) ([][]string, error) {
	loc = orPlain(loc)
	unknown := loc.Localize(UnknownLabel)

	result := make([][]string, len(actions))
	wanted := make(map[Category]map[uint64]struct{})

	for i, action := range actions {
		result[i] = make([]string, len(action.Conditions))
		for j, cond := range action.Conditions {
			category, isRef := categoryByType[cond.Type]
			if !isRef {
				result[i][j] = scalarValue(loc, cond)
				continue
			}

			result[i][j] = unknown
			id, err := strconv.ParseUint(cond.Value, 10, 64)
			if err != nil {
				continue
			}
			if wanted[category] == nil {
				wanted[category] = make(map[uint64]struct{})
			}
			wanted[category][id] = struct{}{}
		}
	}

	if len(wanted) == 0 {
		return result, nil
	}

	// 每个类别一个结果槽位，写入一次后只读
	found := make([]map[uint64]Entity, len(Categories))
	g, gctx := errgroup.WithContext(ctx)
	for idx, category := range Categories {
		set, ok := wanted[category]
		if !ok {
			continue
		}
		idx, category, ids := idx, category, sortedIDs(set)
		g.Go(func() error {
			entities, err := store.Get(gctx, category, ids)
			if err != nil {
				return fmt.Errorf("failed to get %s entities: %w", category, err)
			}
			found[idx] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCategory := make(map[Category]map[uint64]Entity, len(Categories))
	for idx, category := range Categories {
		if found[idx] != nil {
			byCategory[category] = found[idx]
		}
	}

	for i, action := range actions {
		for j, cond := range action.Conditions {
			category, isRef := categoryByType[cond.Type]
			if !isRef {
				continue
			}
			id, err := strconv.ParseUint(cond.Value, 10, 64)
			if err != nil {
				continue
			}
			if entity, ok := byCategory[category][id]; ok {
				result[i][j] = entity.DisplayName()
			}
		}
	}

	return result, nil
}

func scalarValue(loc Localizer, cond Condition) string {
	switch cond.Type {
	case TypeTriggerSeverity:
		severity, err := strconv.Atoi(cond.Value)
		if err != nil {
			return loc.Localize(UnknownLabel)
		}
		return SeverityLabel(loc, severity)
	case TypeDServiceType:
		return lookupLabel(loc, dcheckTypeLabels, cond.Value)
	case TypeDStatus:
		return lookupLabel(loc, dstatusLabels, cond.Value)
	case TypeDObject:
		return lookupLabel(loc, dobjectLabels, cond.Value)
	case TypeEventType:
		return lookupLabel(loc, internalEventTypeLabels, cond.Value)
	case TypeSuppressed:
		return ""
	default:
		return cond.Value
	}
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
