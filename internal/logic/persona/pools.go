package persona

import "errors"

// Pools holds the candidate strings each persona field is drawn from.
// A Pools value is never mutated after construction.
type Pools struct {
	Visitors []string `yaml:"visitors"`
	ElfNames []string `yaml:"elf_names"`
	Titles   []string `yaml:"titles"`
	Powers   []string `yaml:"powers"`
}

var (
	ErrEmptyPool = errors.New("persona: pool is empty")
)

// DefaultPools returns the built-in festive pools.
func DefaultPools() Pools {
	return Pools{
		Visitors: []string{
			"Vierailija",
			"Joulun ystävä",
			"Tonttukokelas",
			"Lahjanvartija",
			"Piparileipuri",
			"Kuusenkantaja",
		},
		ElfNames: []string{
			"Säihkysäde",
			"Piparinipsu",
			"Kuusenkoristelija",
			"Kanelitähti",
			"Lumisipaisu",
			"Tähtipolku",
			"Naururinkeli",
		},
		Titles: []string{
			"Joulun osaaja – Lahjainspiraattori",
			"Joulun osaaja – Ilojen sytyttäjä",
			"Joulun osaaja – Kuusenkuningas",
			"Joulun osaaja – Piparimestari",
			"Joulun osaaja – Reen vauhdittaja",
		},
		Powers: []string{
			"+10 % joulumieltä",
			"+25 % kanelintuoksua",
			"+40 % lahjailoa",
			"+15 % tontun taikapölyä",
			"+30 % naurua per minuutti",
		},
	}
}

// Validate returns ErrEmptyPool if any pool has no candidates.
func (p Pools) Validate() error {
	for _, pool := range [][]string{p.Visitors, p.ElfNames, p.Titles, p.Powers} {
		if len(pool) == 0 {
			return ErrEmptyPool
		}
	}
	return nil
}

// clone copies every slice so callers can't reach the generator's pools.
func (p Pools) clone() Pools {
	return Pools{
		Visitors: append([]string(nil), p.Visitors...),
		ElfNames: append([]string(nil), p.ElfNames...),
		Titles:   append([]string(nil), p.Titles...),
		Powers:   append([]string(nil), p.Powers...),
	}
}
