package persona

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/cjeanneret/ElfBooth/internal/hw/camera"
	"github.com/cjeanneret/ElfBooth/internal/i18n"
)

// Result is one generated persona together with the photo it was made for.
type Result struct {
	ID          uuid.UUID    `json:"id"`
	Visitor     string       `json:"name"`
	ElfName     string       `json:"elfName"`
	Title       string       `json:"title"`
	Power       string       `json:"jouluPower"`
	Description string       `json:"description"`
	Photo       camera.Photo `json:"-"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// IsZero reports whether r is the empty result.
func (r Result) IsZero() bool {
	return r.ID == uuid.Nil
}

// DisplayName is the elf name as shown on the result screen.
func (r Result) DisplayName(lang language.Tag) string {
	return i18n.Upper(lang, r.ElfName)
}

// Generator draws personas from fixed pools.
// It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	pools Pools
	rng   *rand.Rand
	lang  language.Tag
}

// NewGenerator returns a generator over pools. A nil src is replaced by a
// PCG source seeded from crypto/rand.
func NewGenerator(pools Pools, src rand.Source, lang language.Tag) (*Generator, error) {
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		var err error
		if src, err = NewSeededSource(); err != nil {
			return nil, err
		}
	}
	return &Generator{
		pools: pools.clone(),
		rng:   rand.New(src),
		lang:  lang,
	}, nil
}

// NewSeededSource returns a PCG source seeded from crypto/rand.
func NewSeededSource() (rand.Source, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

// Generate picks one entry from each pool independently and uniformly,
// composes the description and stamps the result with now.
//
// This is where a remote persona service would plug in; the local
// generator keeps the kiosk self-contained.
func (g *Generator) Generate(photo camera.Photo, now time.Time) Result {
	g.mu.Lock()
	visitor := pick(g.rng, g.pools.Visitors)
	elf := pick(g.rng, g.pools.ElfNames)
	title := pick(g.rng, g.pools.Titles)
	power := pick(g.rng, g.pools.Powers)
	g.mu.Unlock()

	return Result{
		ID:          uuid.New(),
		Visitor:     visitor,
		ElfName:     elf,
		Title:       title,
		Power:       power,
		Description: Describe(g.lang, visitor, elf, title, power),
		Photo:       photo,
		CreatedAt:   now.UTC(),
	}
}

// Language returns the locale descriptions are written in.
func (g *Generator) Language() language.Tag {
	return g.lang
}

// Describe composes the persona sentence in lang.
func Describe(lang language.Tag, visitor, elfName, title, power string) string {
	return i18n.Text(lang, i18n.Description, visitor, elfName, title, power)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.IntN(len(pool))]
}
