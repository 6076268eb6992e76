/*
Package factory provides program configuration loading.

PURPOSE:
  Converts JSON or YAML program definitions into the validated runtime
  objects: tier table, benefit catalog, reward catalog, and the
  points-per-dollar earning rate. This enables program changes without
  code changes - the marketing team edits a config file, the factory
  builds the proper Go structs.

VALIDATION AT LOAD:
  Configuration is rejected, not repaired:
  - all four tiers present, thresholds strictly increasing
  - multipliers >= 1.0 and non-decreasing by tier rank
  - points_per_dollar positive
  Threshold and multiplier validation lives in the loyalty package; the
  factory adds the wire-format parsing on top. There is no dynamic
  lookup of configuration by string-built keys at runtime - everything
  is resolved into typed tables here, once.

JSON SCHEMA:
  {
    "name": "Standard Program",
    "points_per_dollar": 10,
    "tiers": [
      {"name": "BRONZE", "threshold": 1000,
       "benefits": [{"type": "POINTS_MULTIPLIER", "value": "1.0"}]},
      ...
    ],
    "rewards": [
      {"id": "gift-card-10", "name": "$10 Gift Card",
       "points_cost": 1000, "category": "gift_card", "in_stock": true}
    ]
  }

  The same shape applies to YAML files (.yaml/.yml).

USAGE:
  f := factory.NewProgramFactory()
  program, err := f.LoadFile("program.yaml")
  // or
  program, err := f.ParseJSON([]byte(factory.DefaultProgramJSON()))

SEE ALSO:
  - loyalty/tier.go: Threshold table validation
  - loyalty/benefits.go: Multiplier validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/rewards"
)

// =============================================================================
// WIRE FORMAT
// =============================================================================

// ProgramJSON is the serialized representation of a loyalty program.
// The yaml tags make the same struct the YAML schema.
type ProgramJSON struct {
	Name            string       `json:"name" yaml:"name"`
	PointsPerDollar int64        `json:"points_per_dollar" yaml:"points_per_dollar"`
	Tiers           []TierJSON   `json:"tiers" yaml:"tiers"`
	Rewards         []RewardJSON `json:"rewards,omitempty" yaml:"rewards,omitempty"`
}

type TierJSON struct {
	Name      string        `json:"name" yaml:"name"`
	Threshold int64         `json:"threshold" yaml:"threshold"`
	Benefits  []BenefitJSON `json:"benefits,omitempty" yaml:"benefits,omitempty"`
}

type BenefitJSON struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

type RewardJSON struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	PointsCost  int64  `json:"points_cost" yaml:"points_cost"`
	Category    string `json:"category" yaml:"category"`
	InStock     bool   `json:"in_stock" yaml:"in_stock"`
}

// =============================================================================
// RUNTIME PROGRAM
// =============================================================================

// Program is the validated, immutable runtime configuration.
type Program struct {
	Name            string
	PointsPerDollar int64
	Tiers           *loyalty.TierTable
	Benefits        *loyalty.BenefitCatalog
	Rewards         *rewards.Catalog
}

// =============================================================================
// FACTORY
// =============================================================================

type ProgramFactory struct{}

func NewProgramFactory() *ProgramFactory {
	return &ProgramFactory{}
}

// ParseJSON builds a Program from a JSON document.
func (f *ProgramFactory) ParseJSON(data []byte) (*Program, error) {
	var cfg ProgramJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid program JSON: %w", err)
	}
	return f.Build(cfg)
}

// ParseYAML builds a Program from a YAML document.
func (f *ProgramFactory) ParseYAML(data []byte) (*Program, error) {
	var cfg ProgramJSON
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid program YAML: %w", err)
	}
	return f.Build(cfg)
}

// LoadFile reads a program definition, dispatching on the file extension
// (.yaml/.yml for YAML, anything else parsed as JSON).
func (f *ProgramFactory) LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return f.ParseYAML(data)
	default:
		return f.ParseJSON(data)
	}
}

// Build validates a parsed configuration and assembles the runtime tables.
func (f *ProgramFactory) Build(cfg ProgramJSON) (*Program, error) {
	if cfg.PointsPerDollar == 0 {
		cfg.PointsPerDollar = 10
	}
	if cfg.PointsPerDollar < 0 {
		return nil, fmt.Errorf("points_per_dollar must be positive, got %d", cfg.PointsPerDollar)
	}
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("program defines no tiers")
	}

	advance := make(map[loyalty.Tier]int64, len(cfg.Tiers))
	var benefits []loyalty.Benefit
	for _, tc := range cfg.Tiers {
		tier, err := loyalty.ParseTier(tc.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := advance[tier]; dup {
			return nil, fmt.Errorf("tier %s configured twice", tier)
		}
		advance[tier] = tc.Threshold
		for _, bc := range tc.Benefits {
			benefits = append(benefits, loyalty.Benefit{
				Tier:  tier,
				Type:  loyalty.BenefitType(bc.Type),
				Value: bc.Value,
			})
		}
	}

	tiers, err := loyalty.NewTierTable(advance)
	if err != nil {
		return nil, err
	}

	catalog, err := loyalty.NewBenefitCatalog(benefits)
	if err != nil {
		return nil, err
	}

	rewardCatalog := rewards.DefaultCatalog()
	if len(cfg.Rewards) > 0 {
		items := make([]rewards.Item, 0, len(cfg.Rewards))
		for _, rc := range cfg.Rewards {
			items = append(items, rewards.Item{
				ID:          rc.ID,
				Name:        rc.Name,
				Description: rc.Description,
				PointsCost:  rc.PointsCost,
				Category:    rewards.Category(rc.Category),
				InStock:     rc.InStock,
			})
		}
		rewardCatalog, err = rewards.NewCatalog(items)
		if err != nil {
			return nil, err
		}
	}

	name := cfg.Name
	if name == "" {
		name = "Loyalty Program"
	}

	return &Program{
		Name:            name,
		PointsPerDollar: cfg.PointsPerDollar,
		Tiers:           tiers,
		Benefits:        catalog,
		Rewards:         rewardCatalog,
	}, nil
}

// DefaultProgram returns the standard program: 10 points per dollar,
// 1000/5000/15000/50000 thresholds, default benefits and rewards.
func DefaultProgram() *Program {
	f := NewProgramFactory()
	p, err := f.ParseJSON([]byte(DefaultProgramJSON()))
	if err != nil {
		panic(err) // static configuration, cannot fail
	}
	return p
}

// DefaultProgramJSON returns the standard program definition as JSON,
// suitable as a starting point for a deployment-specific config file.
func DefaultProgramJSON() string {
	return `{
		"name": "Standard Program",
		"points_per_dollar": 10,
		"tiers": [
			{"name": "BRONZE", "threshold": 1000, "benefits": [
				{"type": "POINTS_MULTIPLIER", "value": "1.0"}
			]},
			{"name": "SILVER", "threshold": 5000, "benefits": [
				{"type": "POINTS_MULTIPLIER", "value": "1.25"},
				{"type": "FREE_SHIPPING", "value": "true"}
			]},
			{"name": "GOLD", "threshold": 15000, "benefits": [
				{"type": "POINTS_MULTIPLIER", "value": "1.5"},
				{"type": "FREE_SHIPPING", "value": "true"},
				{"type": "PRIORITY_SUPPORT", "value": "true"}
			]},
			{"name": "PLATINUM", "threshold": 50000, "benefits": [
				{"type": "POINTS_MULTIPLIER", "value": "2.0"},
				{"type": "FREE_SHIPPING", "value": "true"},
				{"type": "PRIORITY_SUPPORT", "value": "true"},
				{"type": "BIRTHDAY_BONUS", "value": "true"},
				{"type": "EARLY_ACCESS", "value": "true"}
			]}
		]
	}`
}
