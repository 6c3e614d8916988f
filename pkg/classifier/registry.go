package classifier

import (
	"sort"
	"sync"

	"github.com/chenBenjamin97/shot-labeler/pkg/logger"
	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"go.uber.org/zap"
)

//Entry is one selectable classifier.
type Entry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Classifier  shot.Classifier `json:"-"`
}

//Registry maps classifier ids to classifiers. Unknown ids resolve to the rule classifier.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

//NewRegistry returns a registry holding the rule classifier under RuleID.
func NewRegistry(rule *Rule) *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	r.Register(Entry{
		ID:          RuleID,
		Name:        "Random Shot Generator",
		Description: "Rule based generator weighted by handedness and court side",
		Classifier:  rule,
	})
	return r
}

func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
}

func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

//Resolve returns the entry of id, or the rule classifier when id is not registered.
func (r *Registry) Resolve(id string) Entry {
	if e, ok := r.Get(id); ok {
		return e
	}

	logger.Logger.Warn("Resolve: Requested model not found, using random model instead", zap.String("model", id))
	e, _ := r.Get(RuleID)
	return e
}

//List returns the entries sorted by id.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
