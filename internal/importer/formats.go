package importer

import (
	"fmt"
	"sort"

	"github.com/nessita/cgem/internal/models"
)

// builtinConfigs are the parser configurations shipped with cgem, one per
// supported bank export format. Accounts reference them by name; custom
// formats can be declared inline in the accounts file instead.
var builtinConfigs = map[string]*models.ParserConfig{
	"bna": {
		Name:         "bna",
		When:         []int{0},
		What:         []int{1},
		Amount:       []int{2},
		DateFormat:   "02/01/2006",
		DecimalPoint: ".",
		ThousandsSep: ",",
		IgnoreRows:   1,
		Country:      "AR",
	},
	"sco": {
		Name:         "sco",
		When:         []int{1},
		What:         []int{3},
		Amount:       []int{5, 6},
		Notes:        []int{2},
		DateFormat:   "02/01/2006",
		DecimalPoint: ",",
		ThousandsSep: ".",
		IgnoreRows:   1,
		Country:      "UY",
	},
	"wfg": {
		Name:         "wfg",
		When:         []int{0},
		What:         []int{4},
		Amount:       []int{1},
		DateFormat:   "01/02/2006",
		DecimalPoint: ".",
		ThousandsSep: ",",
		Country:      "US",
		DeferProcessing: []string{
			"INTERNATIONAL PURCHASE TRANSACTION FEE",
			"NON-WELLS FARGO ATM TRANSACTION FEE",
		},
	},
}

// BuiltinConfig returns a copy of the named built-in parser configuration.
func BuiltinConfig(name string) (*models.ParserConfig, error) {
	config, ok := builtinConfigs[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser config %q (available: %v)", name, BuiltinNames())
	}
	copied := *config
	return &copied, nil
}

// BuiltinNames lists the built-in parser configuration names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinConfigs))
	for name := range builtinConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
