package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mlbench/benchdash/internal/models"
)

// familyKeywords is scanned in order, so the more specific BERT derivatives
// precede "bert".
var familyKeywords = []struct {
	family   models.ModelFamily
	keywords []string
}{
	{models.FamilyDistilBERT, []string{"distilbert"}},
	{models.FamilyRoBERTa, []string{"roberta"}},
	{models.FamilyDeBERTa, []string{"deberta"}},
	{models.FamilyALBERT, []string{"albert"}},
	{models.FamilyELECTRA, []string{"electra"}},
	{models.FamilyBERT, []string{"bert"}},
	{models.FamilyGPT, []string{"gpt"}},
	{models.FamilyT5, []string{"t5", "ul2"}},
	{models.FamilyLLaMA, []string{"llama"}},
	{models.FamilyMistral, []string{"mistral", "mixtral"}},
	{models.FamilyGemma, []string{"gemma"}},
	{models.FamilyFalcon, []string{"falcon"}},
	{models.FamilyBLOOM, []string{"bloom"}},
	{models.FamilyResNet, []string{"resnet"}},
	{models.FamilyEfficientNet, []string{"efficientnet"}},
	{models.FamilyMobileNet, []string{"mobilenet"}},
	{models.FamilyDenseNet, []string{"densenet"}},
	{models.FamilyInception, []string{"inception"}},
	{models.FamilyViT, []string{"vit", "vision-transformer", "deit"}},
	{models.FamilyCLIP, []string{"clip"}},
	{models.FamilyBLIP, []string{"blip"}},
	{models.FamilyWhisper, []string{"whisper"}},
	{models.FamilyWav2Vec, []string{"wav2vec"}},
}

// InferFamily guesses the family from the model id, falling back to tags.
// Matches in the id take precedence over matches in tags.
func InferFamily(id string, tags []string) models.ModelFamily {
	if f, ok := matchFamily(strings.ToLower(id)); ok {
		return f
	}
	for _, tag := range tags {
		if f, ok := matchFamily(strings.ToLower(tag)); ok {
			return f
		}
	}
	return models.FamilyOther
}

func matchFamily(text string) (models.ModelFamily, bool) {
	for _, fk := range familyKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(text, kw) {
				return fk.family, true
			}
		}
	}
	return models.FamilyOther, false
}

// sizeKeywords is scanned in order against whole tokens of the id and tags.
var sizeKeywords = []struct {
	size     models.ModelSize
	keywords []string
}{
	{models.SizeXXL, []string{"xxl", "xx-large"}},
	{models.SizeXL, []string{"xl", "x-large"}},
	{models.SizeTiny, []string{"tiny", "mini"}},
	{models.SizeSmall, []string{"small", "lite"}},
	{models.SizeBase, []string{"base"}},
	{models.SizeLarge, []string{"large"}},
}

// InferSize guesses the size bucket from whole tokens of the id and tags,
// so "xlm-roberta-base" is base and not xl.
func InferSize(id string, tags []string) models.ModelSize {
	texts := make([]string, 0, len(tags)+1)
	texts = append(texts, strings.ToLower(id))
	for _, t := range tags {
		texts = append(texts, strings.ToLower(t))
	}
	for _, sk := range sizeKeywords {
		for _, kw := range sk.keywords {
			for _, text := range texts {
				if containsToken(text, kw) {
					return sk.size
				}
			}
		}
	}
	return models.SizeUnknown
}

// containsToken reports whether kw occurs in s delimited by separators or
// string boundaries.
func containsToken(s, kw string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], kw)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(kw)
		before := start == 0 || isSep(s[start-1])
		after := end == len(s) || isSep(s[end])
		if before && after {
			return true
		}
		i = start + 1
	}
}

func isSep(b byte) bool {
	return !(b >= 'a' && b <= 'z' || b >= '0' && b <= '9')
}

var (
	paramValuePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(k|m|b|thousand|million|billion)?$`)
	paramIDPattern    = regexp.MustCompile(`(?:^|[^a-z0-9.])(\d+(?:\.\d+)?)([kmb])(?:$|[^a-z0-9])`)
)

var suffixMultiplier = map[string]float64{
	"":         1,
	"k":        1e3,
	"thousand": 1e3,
	"m":        1e6,
	"million":  1e6,
	"b":        1e9,
	"billion":  1e9,
}

// ParseParameters converts an explicit parameter count to an integer.
// Integers, floats, numeric strings and suffixed strings ("110M", "1.3B",
// "350k") are accepted. Anything else, including negative or non-finite
// values, yields nil.
func ParseParameters(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return nonNegative(float64(n))
	case int32:
		return nonNegative(float64(n))
	case int64:
		if n < 0 {
			return nil
		}
		return &n
	case uint64:
		return nonNegative(float64(n))
	case float32:
		return nonNegative(float64(n))
	case float64:
		return nonNegative(n)
	case json.Number:
		return ParseParameters(n.String())
	case string:
		s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(n, ",", "")))
		m := paramValuePattern.FindStringSubmatch(s)
		if m == nil {
			return nil
		}
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return nonNegative(num * suffixMultiplier[m[2]])
	default:
		return nil
	}
}

func nonNegative(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return nil
	}
	n := int64(math.Round(f))
	return &n
}

// InferParameters extracts a parameter count embedded in a model id as a
// separate token such as "llama-2-7b" or "bloom-560m".
func InferParameters(id string) *int64 {
	m := paramIDPattern.FindStringSubmatch(strings.ToLower(id))
	if m == nil {
		return nil
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return nonNegative(num * suffixMultiplier[m[2]])
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps with or without a zone (naive
// values are UTC) and bare dates. Unparsable input yields nil.
func ParseTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		return ParseTime(*t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				u := parsed.UTC()
				return &u
			}
		}
		return nil
	default:
		return nil
	}
}

// ParseValue converts an evaluation value to a finite float.
func ParseValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
