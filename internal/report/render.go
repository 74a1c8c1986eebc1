package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/dgallion1/archindex/internal/attributes"
	"github.com/xuri/excelize/v2"
)

// shape trims the collected data to what the report type shows.
// Summary reports carry attribute values only; detailed reports keep
// occurrence positions.
func shape(d *Data) {
	for i := range d.Files {
		f := &d.Files[i]
		if d.Info.Type == Summary {
			f.OCRText = ""
			f.OCRResultFile = ""
		}
		if f.Attributes == nil {
			continue
		}
		rec := *f.Attributes
		switch d.Info.Type {
		case Summary:
			rec.Positions = nil
			rec.Highlighted = ""
		case Standard, Archive:
			rec.Positions = nil
		}
		f.Attributes = &rec
	}
}

func render(d *Data, req Request) ([]byte, error) {
	switch req.Format {
	case JSON:
		return json.MarshalIndent(d, "", "  ")
	case HTML:
		return renderHTML(d)
	case CSV:
		return renderCSV(d)
	case XLSX:
		return renderXLSX(d)
	case XML:
		return renderXML(d)
	case PDF:
		return renderPDF(d), nil
	}
	return nil, fmt.Errorf("unsupported format %q", req.Format)
}

// columnKinds orders attribute columns. Archive reports lead with the
// archive citation.
func columnKinds(t Type) []attributes.Kind {
	if t == Archive {
		return []attributes.Kind{
			attributes.ArchiveCode, attributes.DocumentNumber, attributes.Date,
			attributes.PersonName, attributes.Organization, attributes.Address,
		}
	}
	return attributes.Kinds()
}

// table flattens the report into a header and one row per file.
func table(d *Data) ([]string, [][]string) {
	kinds := columnKinds(d.Info.Type)
	detailed := d.Info.Type == Detailed

	header := []string{"file_id", "original_file"}
	for _, k := range kinds {
		header = append(header, string(k))
	}
	if detailed {
		for _, k := range kinds {
			header = append(header, string(k)+"_valid")
		}
		header = append(header, "text_length")
	}
	withText := false
	for _, f := range d.Files {
		if f.OCRText != "" {
			withText = true
			break
		}
	}
	if withText {
		header = append(header, "ocr_text")
	}

	rows := make([][]string, 0, len(d.Files))
	for _, f := range d.Files {
		row := []string{f.FileID, ""}
		if f.OriginalFile != nil {
			row[1] = f.OriginalFile.Name
		}
		var rec attributes.Record
		if f.Attributes != nil {
			rec = *f.Attributes
		}
		for _, k := range kinds {
			row = append(row, rec.Attributes[k])
		}
		if detailed {
			for _, k := range kinds {
				v := ""
				if f.Attributes != nil {
					v = strconv.FormatBool(rec.Validation[k])
				}
				row = append(row, v)
			}
			row = append(row, strconv.Itoa(rec.TextLength))
		}
		if withText {
			row = append(row, f.OCRText)
		}
		rows = append(rows, row)
	}
	return header, rows
}

func renderCSV(d *Data) ([]byte, error) {
	header, rows := table(d)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const sheet = "Report"

func renderXLSX(d *Data) ([]byte, error) {
	header, rows := table(d)

	f := excelize.NewFile()
	defer f.Close()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	last, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(sheet, "A", last, 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

type xmlReport struct {
	XMLName xml.Name `xml:"report"`
	Info
	Files []xmlFile `xml:"file"`
}

type xmlFile struct {
	ID         string    `xml:"id,attr"`
	Original   string    `xml:"original_file,omitempty"`
	Attributes []xmlAttr `xml:"attributes>attribute,omitempty"`
	Text       string    `xml:"ocr_text,omitempty"`
}

type xmlAttr struct {
	Kind  attributes.Kind `xml:"kind,attr"`
	Valid bool            `xml:"valid,attr"`
	Value string          `xml:",chardata"`
}

func renderXML(d *Data) ([]byte, error) {
	doc := xmlReport{Info: d.Info}
	for _, f := range d.Files {
		xf := xmlFile{ID: f.FileID, Text: f.OCRText}
		if f.OriginalFile != nil {
			xf.Original = f.OriginalFile.Name
		}
		if f.Attributes != nil {
			for _, k := range columnKinds(d.Info.Type) {
				if v := f.Attributes.Attributes[k]; v != "" {
					xf.Attributes = append(xf.Attributes, xmlAttr{Kind: k, Valid: f.Attributes.Validation[k], Value: v})
				}
			}
		}
		doc.Files = append(doc.Files, xf)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// renderPDF writes a plain-text placeholder. No PDF writer is wired yet.
func renderPDF(d *Data) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Отчёт в формате %s\n", d.Info.Format)
	fmt.Fprintf(&b, "Сгенерирован: %s\n", d.Info.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "Тип отчёта: %s\n", d.Info.Type)
	fmt.Fprintf(&b, "Количество файлов: %d\n", len(d.Files))
	return b.Bytes()
}
