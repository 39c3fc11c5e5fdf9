package output

import "strings"

type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

// Formats 返回 --format 可接受的全部取值，auto 在最后。
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTable, FormatCSV, FormatAuto}
}

func IsValid(f Format) bool {
	for _, v := range Formats() {
		if f == v {
			return true
		}
	}
	return false
}

// FormatList 把 Formats 拼成 "json|yaml|..."，用于帮助文本与错误详情。
func FormatList() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, "|")
}
