package attributes

import "fmt"

// Kind identifies one of the fixed semantic field categories.
type Kind string

const (
	PersonName     Kind = "fio"
	Date           Kind = "date"
	Address        Kind = "address"
	ArchiveCode    Kind = "archive_code"
	DocumentNumber Kind = "document_number"
	Organization   Kind = "organization"
)

var allKinds = [...]Kind{PersonName, Date, Address, ArchiveCode, DocumentNumber, Organization}

// Kinds returns every kind in canonical order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds[:])
	return out
}

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown attribute kind: %q", s)
}

// Positional reports whether ExtractWithPositions locates occurrences of k.
// Address and Organization rules are too loose to highlight.
func (k Kind) Positional() bool {
	switch k {
	case PersonName, Date, ArchiveCode, DocumentNumber:
		return true
	}
	return false
}

// TypeInfo describes a kind for API consumers.
type TypeInfo struct {
	Code        Kind   `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"pattern"`
}

var typeInfo = map[Kind]TypeInfo{
	PersonName:     {Code: PersonName, Name: "ФИО", Description: "Фамилия, имя, отчество", Example: "Иванов И.И."},
	Date:           {Code: Date, Name: "Дата", Description: "Дата в различных форматах", Example: "05.04.1960"},
	Address:        {Code: Address, Name: "Адрес", Description: "Адрес места жительства или работы", Example: "Московская обл."},
	ArchiveCode:    {Code: ArchiveCode, Name: "Архивный шифр", Description: "Архивный код документа", Example: "01-0203-0745-000002"},
	DocumentNumber: {Code: DocumentNumber, Name: "Номер документа", Description: "Номер дела или документа", Example: "Дело №123"},
	Organization:   {Code: Organization, Name: "Организация", Description: "Название организации или учреждения", Example: `ООО "Рога и копыта"`},
}

// Info returns the display metadata for k.
func (k Kind) Info() TypeInfo {
	return typeInfo[k]
}

// Types lists display metadata for every kind in canonical order.
func Types() []TypeInfo {
	out := make([]TypeInfo, 0, len(allKinds))
	for _, k := range allKinds {
		out = append(out, typeInfo[k])
	}
	return out
}
