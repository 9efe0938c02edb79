package adl

// Effects is the side-effect classification of an instruction, looked up
// from its attribute names.
type Effects struct {
	MayLoad        bool
	MayStore       bool
	HasSideEffects bool
	IsBranch       bool
}

func (e Effects) union(o Effects) Effects {
	return Effects{
		MayLoad:        e.MayLoad || o.MayLoad,
		MayStore:       e.MayStore || o.MayStore,
		HasSideEffects: e.HasSideEffects || o.HasSideEffects,
		IsBranch:       e.IsBranch || o.IsBranch,
	}
}

func (e Effects) memory() bool {
	return e.MayLoad || e.MayStore
}

var effectVocabulary = map[string]Effects{
	"load":        {MayLoad: true},
	"store":       {MayStore: true},
	"jump":        {IsBranch: true},
	"branch":      {IsBranch: true},
	"fence":       {MayLoad: true, MayStore: true, HasSideEffects: true},
	"sync":        {MayLoad: true, MayStore: true, HasSideEffects: true},
	"memory_sync": {MayLoad: true, MayStore: true, HasSideEffects: true},
	"atomic":      {MayLoad: true, MayStore: true},
	"side_effect": {HasSideEffects: true},
	"system":      {HasSideEffects: true},
	"trap":        {HasSideEffects: true},
}

// classifyEffects matches attributes against the fixed vocabulary and the
// configured extra side-effect markers.
func classifyEffects(attrs AttrSet, cfg *Config) Effects {
	var ret Effects
	for name := range attrs {
		if e, ok := effectVocabulary[name]; ok {
			ret = ret.union(e)
		}
		if containsString(cfg.SideEffectAttributes, name) {
			ret.HasSideEffects = true
		}
	}
	return ret
}
