package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/zx06/xpasswd/internal/errors"
)

// TableFormatter 由列表型数据实现，table/csv 输出按行列渲染。
type TableFormatter interface {
	ToTableData() (columns []string, rows []map[string]any)
}

type Writer struct {
	Out io.Writer
	Err io.Writer
}

func New(out, err io.Writer) Writer {
	return Writer{Out: out, Err: err}
}

func (w Writer) WriteOK(format Format, data any) error {
	return w.write(format, OKEnvelope(data))
}

func (w Writer) WriteError(format Format, xe *errors.XError) error {
	return w.write(format, ErrorEnvelope(xe))
}

func (w Writer) write(format Format, env Envelope) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w.Out)
		enc.SetEscapeHTML(false)
		return enc.Encode(env)
	case FormatYAML:
		b, err := yaml.Marshal(env)
		if err != nil {
			return err
		}
		_, err = w.Out.Write(b)
		return err
	case FormatTable:
		return writeTable(w.Out, env)
	case FormatCSV:
		return writeCSV(w.Out, env)
	default:
		return errors.New(errors.CodeCfgInvalid, "invalid output format", map[string]any{"format": string(format)})
	}
}

func writeTable(out io.Writer, env Envelope) error {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	if !env.OK {
		_, _ = fmt.Fprintf(tw, "error.code\t%s\n", env.Error.Code)
		_, _ = fmt.Fprintf(tw, "error.message\t%s\n", env.Error.Message)
		for _, kv := range flatten(env.Error.Details) {
			_, _ = fmt.Fprintf(tw, "error.details.%s\t%s\n", kv[0], kv[1])
		}
		return tw.Flush()
	}

	if tf, ok := env.Data.(TableFormatter); ok {
		cols, rows := tf.ToTableData()
		for i, c := range cols {
			if i > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}
			_, _ = fmt.Fprint(tw, c)
		}
		_, _ = fmt.Fprintln(tw)
		for _, row := range rows {
			for i, c := range cols {
				if i > 0 {
					_, _ = fmt.Fprint(tw, "\t")
				}
				_, _ = fmt.Fprint(tw, cell(row[c]))
			}
			_, _ = fmt.Fprintln(tw)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "\n(%d rows)\n", len(rows))
		return err
	}

	for _, kv := range flatten(env.Data) {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}

func writeCSV(out io.Writer, env Envelope) error {
	cw := csv.NewWriter(out)
	if !env.OK {
		_ = cw.Write([]string{"error.code", string(env.Error.Code)})
		_ = cw.Write([]string{"error.message", env.Error.Message})
		cw.Flush()
		return cw.Error()
	}

	if tf, ok := env.Data.(TableFormatter); ok {
		cols, rows := tf.ToTableData()
		_ = cw.Write(cols)
		for _, row := range rows {
			rec := make([]string, len(cols))
			for i, c := range cols {
				rec[i] = cell(row[c])
			}
			_ = cw.Write(rec)
		}
	} else {
		for _, kv := range flatten(env.Data) {
			_ = cw.Write([]string{kv[0], kv[1]})
		}
	}
	cw.Flush()
	return cw.Error()
}

// flatten 把任意数据经 JSON 转成按键排序的 key/value 对；嵌套对象以 JSON 文本呈现。
func flatten(data any) [][2]string {
	if data == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return [][2]string{{"data", fmt.Sprint(data)}}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return [][2]string{{"data", string(b)}}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, cell(m[k])})
	}
	return out
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
