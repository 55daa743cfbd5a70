package models

import "strings"

// TaskType is the ML problem category a model is evaluated on.
type TaskType string

const (
	TaskImageClassification   TaskType = "image-classification"
	TaskTextClassification    TaskType = "text-classification"
	TaskTokenClassification   TaskType = "token-classification"
	TaskTextGeneration        TaskType = "text-generation"
	TaskText2TextGeneration   TaskType = "text2text-generation"
	TaskTranslation           TaskType = "translation"
	TaskSummarization         TaskType = "summarization"
	TaskQuestionAnswering     TaskType = "question-answering"
	TaskObjectDetection       TaskType = "object-detection"
	TaskImageSegmentation     TaskType = "image-segmentation"
	TaskSpeechRecognition     TaskType = "automatic-speech-recognition"
	TaskAudioClassification   TaskType = "audio-classification"
	TaskTabularClassification TaskType = "tabular-classification"
	TaskTabularRegression     TaskType = "tabular-regression"
	TaskReinforcementLearning TaskType = "reinforcement-learning"
	TaskOther                 TaskType = "other"
)

// AllTasks lists every known task type in declaration order, TaskOther last.
var AllTasks = []TaskType{
	TaskImageClassification,
	TaskTextClassification,
	TaskTokenClassification,
	TaskTextGeneration,
	TaskText2TextGeneration,
	TaskTranslation,
	TaskSummarization,
	TaskQuestionAnswering,
	TaskObjectDetection,
	TaskImageSegmentation,
	TaskSpeechRecognition,
	TaskAudioClassification,
	TaskTabularClassification,
	TaskTabularRegression,
	TaskReinforcementLearning,
	TaskOther,
}

// ParseTaskType maps a free-form string onto the closed task enumeration.
// Unknown or empty values map to TaskOther.
func ParseTaskType(s string) TaskType {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllTasks {
		if string(t) == s {
			return t
		}
	}
	return TaskOther
}

// ModelFamily is the architecture lineage of a model.
type ModelFamily string

const (
	FamilyBERT         ModelFamily = "bert"
	FamilyGPT          ModelFamily = "gpt"
	FamilyT5           ModelFamily = "t5"
	FamilyRoBERTa      ModelFamily = "roberta"
	FamilyDistilBERT   ModelFamily = "distilbert"
	FamilyELECTRA      ModelFamily = "electra"
	FamilyDeBERTa      ModelFamily = "deberta"
	FamilyALBERT       ModelFamily = "albert"
	FamilyResNet       ModelFamily = "resnet"
	FamilyViT          ModelFamily = "vit"
	FamilyEfficientNet ModelFamily = "efficientnet"
	FamilyMobileNet    ModelFamily = "mobilenet"
	FamilyDenseNet     ModelFamily = "densenet"
	FamilyInception    ModelFamily = "inception"
	FamilyCLIP         ModelFamily = "clip"
	FamilyBLIP         ModelFamily = "blip"
	FamilyWhisper      ModelFamily = "whisper"
	FamilyWav2Vec      ModelFamily = "wav2vec"
	FamilyLLaMA        ModelFamily = "llama"
	FamilyMistral      ModelFamily = "mistral"
	FamilyGemma        ModelFamily = "gemma"
	FamilyFalcon       ModelFamily = "falcon"
	FamilyBLOOM        ModelFamily = "bloom"
	FamilyOther        ModelFamily = "other"
)

// AllFamilies lists every known family in declaration order, FamilyOther last.
var AllFamilies = []ModelFamily{
	FamilyBERT, FamilyGPT, FamilyT5, FamilyRoBERTa, FamilyDistilBERT,
	FamilyELECTRA, FamilyDeBERTa, FamilyALBERT, FamilyResNet, FamilyViT,
	FamilyEfficientNet, FamilyMobileNet, FamilyDenseNet, FamilyInception,
	FamilyCLIP, FamilyBLIP, FamilyWhisper, FamilyWav2Vec, FamilyLLaMA,
	FamilyMistral, FamilyGemma, FamilyFalcon, FamilyBLOOM, FamilyOther,
}

// ParseModelFamily maps a free-form string onto the closed family enumeration.
// The second return value reports whether the string named a known family.
func ParseModelFamily(s string) (ModelFamily, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range AllFamilies {
		if string(f) == s {
			return f, f != FamilyOther
		}
	}
	return FamilyOther, false
}

// Architecture is the coarse category a family belongs to.
type Architecture string

const (
	ArchEncoderOnly    Architecture = "encoder-only"
	ArchDecoderOnly    Architecture = "decoder-only"
	ArchEncoderDecoder Architecture = "encoder-decoder"
	ArchVision         Architecture = "vision"
	ArchMultimodal     Architecture = "multimodal"
	ArchSpeech         Architecture = "speech"
	ArchOther          Architecture = "other"
)

// Architecture returns the coarse architecture category of the family.
func (f ModelFamily) Architecture() Architecture {
	switch f {
	case FamilyBERT, FamilyRoBERTa, FamilyDistilBERT, FamilyELECTRA, FamilyDeBERTa, FamilyALBERT:
		return ArchEncoderOnly
	case FamilyGPT, FamilyLLaMA, FamilyMistral, FamilyGemma, FamilyFalcon, FamilyBLOOM:
		return ArchDecoderOnly
	case FamilyT5:
		return ArchEncoderDecoder
	case FamilyResNet, FamilyViT, FamilyEfficientNet, FamilyMobileNet, FamilyDenseNet, FamilyInception:
		return ArchVision
	case FamilyCLIP, FamilyBLIP:
		return ArchMultimodal
	case FamilyWhisper, FamilyWav2Vec:
		return ArchSpeech
	default:
		return ArchOther
	}
}

// ModelSize is a qualitative size bucket.
type ModelSize string

const (
	SizeUnknown ModelSize = ""
	SizeTiny    ModelSize = "tiny"
	SizeSmall   ModelSize = "small"
	SizeBase    ModelSize = "base"
	SizeLarge   ModelSize = "large"
	SizeXL      ModelSize = "xl"
	SizeXXL     ModelSize = "xxl"
)

// ParseModelSize maps a string onto the size enumeration, SizeUnknown if it
// does not name a bucket.
func ParseModelSize(s string) ModelSize {
	switch ModelSize(strings.ToLower(strings.TrimSpace(s))) {
	case SizeTiny:
		return SizeTiny
	case SizeSmall:
		return SizeSmall
	case SizeBase:
		return SizeBase
	case SizeLarge:
		return SizeLarge
	case SizeXL:
		return SizeXL
	case SizeXXL:
		return SizeXXL
	default:
		return SizeUnknown
	}
}

// MetricKind classifies a metric for formatting and ranking direction.
type MetricKind string

const (
	MetricAccuracy   MetricKind = "accuracy"
	MetricF1         MetricKind = "f1"
	MetricPrecision  MetricKind = "precision"
	MetricRecall     MetricKind = "recall"
	MetricBLEU       MetricKind = "bleu"
	MetricROUGE      MetricKind = "rouge"
	MetricPerplexity MetricKind = "perplexity"
	MetricWER        MetricKind = "wer"
	MetricCER        MetricKind = "cer"
	MetricExactMatch MetricKind = "exact_match"
	MetricSQuAD      MetricKind = "squad"
	MetricGLUE       MetricKind = "glue"
	MetricBERTScore  MetricKind = "bertscore"
	MetricMETEOR     MetricKind = "meteor"
	MetricMSE        MetricKind = "mse"
	MetricMAE        MetricKind = "mae"
	MetricR2         MetricKind = "r2"
	MetricAUC        MetricKind = "auc"
	MetricMAP        MetricKind = "map"
	MetricIoU        MetricKind = "iou"
	MetricOther      MetricKind = "other"
)

// LowerIsBetter reports whether smaller values of this metric kind indicate
// better performance.
func (k MetricKind) LowerIsBetter() bool {
	switch k {
	case MetricPerplexity, MetricWER, MetricCER, MetricMSE, MetricMAE:
		return true
	default:
		return false
	}
}

// Better reports whether a beats b under the direction of this metric kind.
// Equal values are not better.
func (k MetricKind) Better(a, b float64) bool {
	if k.LowerIsBetter() {
		return a < b
	}
	return a > b
}
