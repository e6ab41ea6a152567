package items

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smetalab/estimate-engine/pkg/models"
)

// defaultDictionary maps categories to name keywords. Kept deliberately
// conservative: dictionary hits carry medium confidence and only clear-cut
// terms belong here.
var defaultDictionary = map[string][]string{
	"work": {
		"устройство", "монтаж", "демонтаж", "разработка", "укладка",
		"установка", "окраска", "штукатурка", "кладка", "бурение",
		"earthwork", "installation", "assembly",
	},
	"material": {
		"бетон", "раствор", "арматура", "кирпич", "щебень", "песок",
		"труба", "кабель", "провод", "краска", "грунтовка", "плитка",
		"профлист", "гипсокартон", "concrete", "rebar", "brick",
	},
	"equipment": {
		"экскаватор", "кран", "бульдозер", "автопогрузчик", "компрессор",
		"эксплуатация машин", "машины и механизмы", "excavator", "crane",
	},
	"transport": {
		"перевозка", "доставка", "транспортировка", "погрузка", "выгрузка",
		"haulage", "delivery",
	},
	"overhead": {
		"накладные расходы", "сметная прибыль", "временные здания",
		"зимнее удорожание", "overhead",
	},
}

// DictionaryStrategy classifies by keyword lookup against known terms.
type DictionaryStrategy struct {
	dictionary map[string][]string

	// categories is the fixed evaluation order, so ties between equally
	// matched categories resolve deterministically.
	categories []string
}

// NewDictionaryStrategy creates a strategy over the built-in dictionary.
func NewDictionaryStrategy() *DictionaryStrategy {
	return newDictionaryStrategy(defaultDictionary)
}

func newDictionaryStrategy(dict map[string][]string) *DictionaryStrategy {
	categories := make([]string, 0, len(dict))
	for category := range dict {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return &DictionaryStrategy{dictionary: dict, categories: categories}
}

// NewDictionaryStrategyFromFile loads a category dictionary from a YAML file
// shaped as `category: [term, term, ...]`.
func NewDictionaryStrategyFromFile(path string) (*DictionaryStrategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}

	dict := make(map[string][]string)
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	if len(dict) == 0 {
		return nil, fmt.Errorf("dictionary %s is empty", path)
	}

	return newDictionaryStrategy(dict), nil
}

func (s *DictionaryStrategy) Name() string { return models.SourceDictionary }

// Classify matches the item name against the dictionary. Confidence grows
// with the number of matching terms but stays below the escalation threshold
// unless at least two terms agree.
func (s *DictionaryStrategy) Classify(item ItemInput) (models.ClassificationResult, bool) {
	name := strings.ToLower(item.Name)
	if name == "" {
		return models.ClassificationResult{}, false
	}

	bestCategory := ""
	bestMatches := 0
	for _, category := range s.categories {
		matches := 0
		for _, term := range s.dictionary[category] {
			if strings.Contains(name, strings.ToLower(term)) {
				matches++
			}
		}
		if matches > bestMatches {
			bestMatches = matches
			bestCategory = category
		}
	}
	if bestMatches == 0 {
		return models.ClassificationResult{}, false
	}

	confidence := 0.6
	if bestMatches >= 2 {
		confidence = 0.85
	}

	return models.ClassificationResult{
		Category:   bestCategory,
		Confidence: confidence,
		Source:     models.SourceDictionary,
	}, true
}
