package sqldump

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Row maps column names to values. Values are printed with fmt.
type Row map[string]any

var escaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

func Escape(s string) string {
	return escaper.Replace(s)
}

// EmailHash is phpBB's user_email_hash.
func EmailHash(email string) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(email))), 10) + strconv.Itoa(len(email))
}

// Writer emits one SQL statement per line. Columns of an insert are written
// in sorted order so that two dumps of the same tree are identical.
type Writer struct {
	w      *bufio.Writer
	prefix string
	err    error
}

func NewWriter(w io.Writer, prefix string) *Writer {
	return &Writer{
		w:      bufio.NewWriter(w),
		prefix: prefix,
	}
}

func (w *Writer) printf(format string, args ...any) error {
	if w.err != nil {
		return w.err
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
	return w.err
}

func (w *Writer) Truncate(table string) error {
	return w.printf("TRUNCATE TABLE %s%s;\n", w.prefix, table)
}

func (w *Writer) Insert(table string, row Row) error {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = "'" + Escape(fmt.Sprint(row[k])) + "'"
	}
	return w.printf("INSERT INTO %s%s (%s) VALUES (%s);\n", w.prefix, table,
		strings.Join(keys, ", "), strings.Join(values, ", "))
}

func (w *Writer) SetConfig(key string, value any) error {
	return w.printf("UPDATE %sconfig SET config_value='%s' WHERE config_name='%s';\n", w.prefix,
		Escape(fmt.Sprint(value)), Escape(key))
}

func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
