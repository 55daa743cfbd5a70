// Package format owns the display conventions for metric values and the
// human-readable labels of tasks, families and metrics.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/mlbench/benchdash/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// kindPatterns is checked in order and the first pattern contained in a
// metric name wins.
var kindPatterns = []struct {
	pattern string
	kind    models.MetricKind
}{
	{"exact_match", models.MetricExactMatch},
	{"bertscore", models.MetricBERTScore},
	{"perplexity", models.MetricPerplexity},
	{"accuracy", models.MetricAccuracy},
	{"precision", models.MetricPrecision},
	{"recall", models.MetricRecall},
	{"rouge", models.MetricROUGE},
	{"meteor", models.MetricMETEOR},
	{"bleu", models.MetricBLEU},
	{"squad", models.MetricSQuAD},
	{"glue", models.MetricGLUE},
	{"f1", models.MetricF1},
	{"wer", models.MetricWER},
	{"cer", models.MetricCER},
	{"mse", models.MetricMSE},
	{"mae", models.MetricMAE},
	{"r2", models.MetricR2},
	{"auc", models.MetricAUC},
	{"map", models.MetricMAP},
	{"iou", models.MetricIoU},
}

// KindOf classifies a metric name. An exact kind name wins, then the first
// pattern contained in the lower-cased name, else MetricOther.
func KindOf(metricName string) models.MetricKind {
	name := strings.ToLower(strings.TrimSpace(metricName))
	for _, p := range kindPatterns {
		if name == p.pattern {
			return p.kind
		}
	}
	for _, p := range kindPatterns {
		if strings.Contains(name, p.pattern) {
			return p.kind
		}
	}
	return models.MetricOther
}

// IsPercentage reports whether values of the metric are proportions.
func IsPercentage(metricName string) bool {
	switch KindOf(metricName) {
	case models.MetricAccuracy, models.MetricF1, models.MetricPrecision, models.MetricRecall,
		models.MetricExactMatch, models.MetricAUC, models.MetricMAP, models.MetricIoU,
		models.MetricROUGE, models.MetricBERTScore, models.MetricMETEOR,
		models.MetricSQuAD, models.MetricGLUE:
		return true
	default:
		return false
	}
}

// FormatValue renders a metric value. Proportions in [0, 1] become a
// percentage with one decimal; other values use three decimals below 10 and
// two above.
func FormatValue(metricName string, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	if IsPercentage(metricName) && v >= 0 && v <= 1 {
		return fmt.Sprintf("%.1f%%", v*100)
	}
	if math.Abs(v) < 10 {
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// acronyms are kept upper case (or in their canonical spelling) in labels.
var acronyms = map[string]string{
	"bert": "BERT", "gpt": "GPT", "t5": "T5", "roberta": "RoBERTa",
	"distilbert": "DistilBERT", "electra": "ELECTRA", "deberta": "DeBERTa",
	"albert": "ALBERT", "resnet": "ResNet", "vit": "ViT",
	"efficientnet": "EfficientNet", "mobilenet": "MobileNet",
	"densenet": "DenseNet", "clip": "CLIP", "blip": "BLIP",
	"wav2vec": "Wav2Vec", "llama": "LLaMA", "bloom": "BLOOM",
	"bleu": "BLEU", "rouge": "ROUGE", "meteor": "METEOR", "wer": "WER",
	"cer": "CER", "mse": "MSE", "mae": "MAE", "auc": "AUC", "map": "mAP",
	"iou": "IoU", "f1": "F1", "r2": "R²", "squad": "SQuAD", "glue": "GLUE",
	"bertscore": "BERTScore", "text2text": "Text2Text",
}

func label(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		words[i] = cases.Title(language.English).String(w)
	}
	return strings.Join(words, " ")
}

// TaskLabel returns the display label of a task type.
func TaskLabel(t models.TaskType) string {
	if t == models.TaskSpeechRecognition {
		return "Speech Recognition"
	}
	return label(string(t))
}

// FamilyLabel returns the display label of a model family.
func FamilyLabel(f models.ModelFamily) string {
	return label(string(f))
}

// MetricLabel returns the display label of a metric name, e.g. "rouge_l"
// becomes "ROUGE L".
func MetricLabel(name string) string {
	return label(name)
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatParams renders a parameter count with a K, M or B suffix.
func FormatParams(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return trimSuffix(float64(n)/1e9) + "B"
	case n >= 1_000_000:
		return trimSuffix(float64(n)/1e6) + "M"
	case n >= 1_000:
		return trimSuffix(float64(n)/1e3) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimSuffix(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
