package gmaps

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	DefaultBaseURL       = "https://www.google.com/maps"
	DefaultQueryTemplate = "Self Storage {area} Australia"
)

// Range is an inclusive interval a randomized pause is drawn from.
type Range struct {
	Min time.Duration
	Max time.Duration
}

func (r Range) pick(rnd *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + time.Duration(rnd.Int64N(int64(r.Max-r.Min)+1))
}

type Config struct {
	BaseURL       string
	QueryTemplate string
	LangCode      string

	MaxScrollAttempts   int
	MaxResultsToHarvest int
	MaxResultsToProcess int

	// ArtifactsDir receives challenge screenshots. Empty disables them.
	ArtifactsDir string

	BlockCheckTimeout time.Duration
	SearchTimeout     time.Duration
	SearchBoxTimeout  time.Duration
	FeedTimeout       time.Duration
	NavigationTimeout time.Duration
	DetailLoadTimeout time.Duration
	BackTimeout       time.Duration
	ReloadTimeout     time.Duration
	HoursPanelTimeout time.Duration
	PollInterval      time.Duration

	HomeSettle       Range
	ConsentSettle    Range
	TypingDelay      Range
	ResultsSettle    Range
	ScrollSettle     Range
	ScrollExtraPause Range
	// ScrollExtraChance is the probability of an extra pause after a scroll.
	ScrollExtraChance float64
	DetailSettle      Range
	HoursClickSettle  Range
	BackSettle        Range
	AreaPause         Range

	// Seed fixes the pacing randomness. Zero seeds from the clock.
	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		QueryTemplate: DefaultQueryTemplate,
		LangCode:      "en",

		MaxScrollAttempts:   15,
		MaxResultsToHarvest: 200,
		MaxResultsToProcess: 200,

		BlockCheckTimeout: 500 * time.Millisecond,
		SearchTimeout:     25 * time.Second,
		SearchBoxTimeout:  10 * time.Second,
		FeedTimeout:       10 * time.Second,
		NavigationTimeout: 30 * time.Second,
		DetailLoadTimeout: 20 * time.Second,
		BackTimeout:       12 * time.Second,
		ReloadTimeout:     10 * time.Second,
		HoursPanelTimeout: 3 * time.Second,
		PollInterval:      250 * time.Millisecond,

		HomeSettle:        Range{3 * time.Second, 5 * time.Second},
		ConsentSettle:     Range{1800 * time.Millisecond, 3200 * time.Millisecond},
		TypingDelay:       Range{60 * time.Millisecond, 180 * time.Millisecond},
		ResultsSettle:     Range{4 * time.Second, 7 * time.Second},
		ScrollSettle:      Range{2500 * time.Millisecond, 4500 * time.Millisecond},
		ScrollExtraPause:  Range{2500 * time.Millisecond, 5 * time.Second},
		ScrollExtraChance: 0.15,
		DetailSettle:      Range{3500 * time.Millisecond, 6500 * time.Millisecond},
		HoursClickSettle:  Range{1800 * time.Millisecond, 2800 * time.Millisecond},
		BackSettle:        Range{800 * time.Millisecond, 1800 * time.Millisecond},
		AreaPause:         Range{3 * time.Second, 7 * time.Second},
	}
}

func (c *Config) Validate() error {
	if c.MaxScrollAttempts < 0 {
		return fmt.Errorf("max scroll attempts must not be negative: %d", c.MaxScrollAttempts)
	}

	if c.MaxResultsToHarvest < 1 {
		return fmt.Errorf("max results to harvest must be greater than 0: %d", c.MaxResultsToHarvest)
	}

	if c.MaxResultsToProcess < 1 {
		return fmt.Errorf("max results to process must be greater than 0: %d", c.MaxResultsToProcess)
	}

	if !strings.Contains(c.QueryTemplate, "{area}") {
		return fmt.Errorf("query template %q has no {area} placeholder", c.QueryTemplate)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}

	return nil
}

// Query renders the search text for area.
func (c *Config) Query(area string) string {
	return strings.TrimSpace(strings.ReplaceAll(c.QueryTemplate, "{area}", strings.TrimSpace(area)))
}
