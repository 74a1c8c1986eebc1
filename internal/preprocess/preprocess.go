// Package preprocess prepares scanned page images for recognition.
package preprocess

import (
	"context"
	"fmt"
	"strings"
)

// Step names one preprocessing operation.
type Step string

const (
	CorrectPerspective Step = "correct_perspective"
	AlignImage         Step = "align_image"
	EnhanceContrast    Step = "enhance_contrast"
	RemoveNoise        Step = "remove_noise"
	BinarizeImage      Step = "binarize_image"
	EnhanceResolution  Step = "enhance_resolution"
	RemoveBackground   Step = "remove_background"
)

// StepInfo describes a step for API consumers.
type StepInfo struct {
	ID          Step   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	logLine string
}

var steps = []StepInfo{
	{CorrectPerspective, "Коррекция перспективы", "Исправление искажений перспективы документа", "Корректируем перспективу документа"},
	{AlignImage, "Выравнивание изображения", "Поворот изображения для устранения наклона", "Выполняется выравнивание изображения"},
	{EnhanceContrast, "Улучшение контрастности", "Повышение контрастности для лучшей читаемости", "Повышаем контрастность изображения"},
	{RemoveNoise, "Удаление шума", "Очистка изображения от артефактов и шума", "Удаляем шум с изображения"},
	{BinarizeImage, "Бинаризация", "Преобразование в черно-белое изображение", "Выполняется бинаризация изображения"},
	{EnhanceResolution, "Улучшение разрешения", "Повышение качества и четкости изображения", "Улучшаем разрешение изображения"},
	{RemoveBackground, "Удаление фона", "Изоляция содержимого от фона", "Удаляем фон документа"},
}

// DefaultSteps run when a request names none.
var DefaultSteps = []Step{CorrectPerspective, AlignImage, EnhanceContrast, RemoveNoise, BinarizeImage}

// Steps lists every known step.
func Steps() []StepInfo {
	out := make([]StepInfo, len(steps))
	copy(out, steps)
	return out
}

func lookup(s Step) (StepInfo, bool) {
	for _, info := range steps {
		if info.ID == s {
			return info, true
		}
	}
	return StepInfo{}, false
}

// ParseSteps validates requested step names. An empty request selects
// DefaultSteps. Every unknown name is reported in one error.
func ParseSteps(names []string) ([]Step, error) {
	if len(names) == 0 {
		out := make([]Step, len(DefaultSteps))
		copy(out, DefaultSteps)
		return out, nil
	}
	var unknown []string
	out := make([]Step, 0, len(names))
	for _, n := range names {
		s := Step(n)
		if _, ok := lookup(s); !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown preprocessing steps: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Result is the outcome of a preprocessing run.
type Result struct {
	Data  []byte   `json:"-"`
	Steps []Step   `json:"processing_steps"`
	Log   []string `json:"processing_log"`
}

// Preprocessor applies steps to an image.
type Preprocessor interface {
	Process(ctx context.Context, data []byte, steps []Step) (*Result, error)
}

// Passthrough records each step without touching the image. It stands in
// until an image backend is wired.
type Passthrough struct{}

func (Passthrough) Process(ctx context.Context, data []byte, req []Step) (*Result, error) {
	res := &Result{Data: data, Steps: req, Log: make([]string, 0, len(req))}
	for i, s := range req {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, ok := lookup(s)
		if !ok {
			return nil, fmt.Errorf("unknown preprocessing step %q", s)
		}
		res.Log = append(res.Log, fmt.Sprintf("[%d/%d] %s...", i+1, len(req), info.logLine))
	}
	return res, nil
}
