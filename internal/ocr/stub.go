package ocr

import "context"

// Stub returns fixed sample text for each language and model. It does no
// image work and exists so the pipeline can run end to end without an
// OCR engine.
type Stub struct{}

var stubText = map[bool]map[ModelType]string{
	true: {
		Printed:     "Пример распознанного печатного текста на русском языке. Документ содержит важную информацию для архива.",
		Handwritten: "Пример распознанного рукописного текста на русском языке. Почерк может быть неразборчивым.",
		Mixed:       "Пример смешанного текста: печатный и рукописный. Дата: 15.03.2024, Подпись: И.И. Иванов",
	},
	false: {
		Printed:     "Example of recognized printed text in English. Document contains important archive information.",
		Handwritten: "Example of recognized handwritten text in English. Handwriting may be unclear.",
		Mixed:       "Example of mixed text: printed and handwritten. Date: 03/15/2024, Signature: J. Smith",
	},
}

func (Stub) Recognize(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := in.Model
	if model == "" {
		model = Printed
	}
	lang := in.Language
	if lang == "" {
		lang = "ru"
	}
	text, ok := stubText[lang == "ru"][model]
	if !ok {
		text = stubText[lang == "ru"][Printed]
	}
	return &Result{Text: text, Source: SourceStub, Language: lang, Model: model, Confidence: 0.85}, nil
}
