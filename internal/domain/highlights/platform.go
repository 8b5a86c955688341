package highlights

import "math"

// PoolEntry is an already rendered highlight file available for packing.
type PoolEntry struct {
	Name     string
	Path     string
	Duration float64
	Used     bool
}

// Pool is the chronological working set a platform pass consumes.
type Pool struct {
	Entries []PoolEntry
}

func NewPool(entries []PoolEntry) *Pool {
	return &Pool{Entries: append([]PoolEntry(nil), entries...)}
}

// Reset clears the used flags so the next platform can reuse the material.
func (p *Pool) Reset() {
	for i := range p.Entries {
		p.Entries[i].Used = false
	}
}

func (p *Pool) next() int {
	for i, e := range p.Entries {
		if !e.Used {
			return i
		}
	}
	return len(p.Entries)
}

type Platform struct {
	Name        string  `yaml:"name"`
	MaxDuration float64 `yaml:"max_duration"`
	Clips       int     `yaml:"clips"`
}

var (
	YouTube      = Platform{Name: "youtube", MaxDuration: 59, Clips: 3}
	Instagram    = Platform{Name: "instagram", MaxDuration: 15, Clips: 3}
	AllPlatforms = []Platform{YouTube, Instagram}
)

// PlatformPack is one platform output: consecutive pool entries whose total
// stays within the platform max, or a single entry trimmed to it.
type PlatformPack struct {
	Parts    []PoolEntry
	Duration float64
	Trimmed  bool
}

// PackPlatform builds up to pl.Clips packs from the front of the pool,
// marking consumed entries as used. Fewer packs mean the pool ran out.
func PackPlatform(pool *Pool, pl Platform) []PlatformPack {
	var out []PlatformPack
	for len(out) < pl.Clips {
		i := pool.next()
		if i >= len(pool.Entries) {
			break
		}

		var pack PlatformPack
		for ; i < len(pool.Entries); i++ {
			e := pool.Entries[i]
			if pack.Duration+e.Duration <= pl.MaxDuration {
				pack.Parts = append(pack.Parts, e)
				pack.Duration += e.Duration
				pool.Entries[i].Used = true
				continue
			}
			if len(pack.Parts) == 0 {
				pack.Parts = append(pack.Parts, e)
				pack.Duration = math.Min(e.Duration, pl.MaxDuration)
				pack.Trimmed = true
				pool.Entries[i].Used = true
			}
			break
		}
		if len(pack.Parts) == 0 {
			break
		}
		out = append(out, pack)
	}
	return out
}
