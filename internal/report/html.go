package report

import (
	"bytes"
	"html/template"
)

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1em; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.invalid { color: #b00; }
.text { white-space: pre-wrap; border: 1px solid #eee; padding: 1em; }
.attribute { background: #fff3b0; }
.attribute-fio { background: #cde7ff; }
.attribute-date { background: #d7f5d0; }
.attribute-archive_code { background: #f5d0e6; }
.attribute-document_number { background: #ffe0c2; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Сгенерирован: {{.GeneratedAt}}. Файлов: {{.TotalFiles}}.</p>
{{range .Files}}<section>
<h2>{{.FileID}}</h2>
{{if .Original}}<p>Исходный файл: {{.Original}}</p>
{{end}}{{if .Rows}}<table>
<tr><th>Атрибут</th><th>Значение</th><th>Проверка</th></tr>
{{range .Rows}}<tr{{if not .Valid}} class="invalid"{{end}}><td>{{.Name}}</td><td>{{.Value}}</td><td>{{if .Valid}}✓{{else}}✗{{end}}</td></tr>
{{end}}</table>
{{end}}{{if .Highlighted}}<div class="text">{{.Highlighted}}</div>
{{else if .Text}}<pre class="text">{{.Text}}</pre>
{{end}}</section>
{{end}}</body>
</html>
`))

type htmlPage struct {
	Title       string
	GeneratedAt string
	TotalFiles  int
	Files       []htmlFile
}

type htmlFile struct {
	FileID      string
	Original    string
	Rows        []htmlRow
	Highlighted template.HTML
	Text        string
}

type htmlRow struct {
	Name  string
	Value string
	Valid bool
}

func renderHTML(d *Data) ([]byte, error) {
	p := htmlPage{
		Title:       "Отчёт: " + string(d.Info.Type),
		GeneratedAt: d.Info.GeneratedAt.Format("02.01.2006 15:04:05"),
		TotalFiles:  d.Info.TotalFiles,
	}
	for _, t := range types {
		if t.Code == d.Info.Type {
			p.Title = t.Name
		}
	}
	for _, f := range d.Files {
		hf := htmlFile{FileID: f.FileID, Text: f.OCRText}
		if f.OriginalFile != nil {
			hf.Original = f.OriginalFile.Name
		}
		if rec := f.Attributes; rec != nil {
			for _, k := range columnKinds(d.Info.Type) {
				if v := rec.Attributes[k]; v != "" {
					hf.Rows = append(hf.Rows, htmlRow{Name: k.Info().Name, Value: v, Valid: rec.Validation[k]})
				}
			}
			// Annotate escapes all text it emits.
			if rec.Highlighted != "" && f.OCRText != "" {
				hf.Highlighted = template.HTML(rec.Highlighted)
			}
		}
		p.Files = append(p.Files, hf)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
