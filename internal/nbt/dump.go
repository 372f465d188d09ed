package nbt

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)

// Dump writes a human readable, indented rendering of t under name. The
// output is stable for a given tree and uses SNBT-style literal suffixes.
func Dump(w io.Writer, name string, t Tag) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(dumpKey(name))
	bw.WriteString(": ")
	dumpTag(bw, t, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

// Format renders t the way Dump renders a value. Scalars and arrays come out
// on a single line.
func Format(t Tag) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	bw := bufio.NewWriter(&sb)
	dumpTag(bw, t, 0)
	_ = bw.Flush()
	return sb.String()
}

func dumpKey(k string) string {
	if bareKey.MatchString(k) {
		return k
	}
	return strconv.Quote(k)
}

func indent(w *bufio.Writer, depth int) {
	w.WriteString(strings.Repeat("  ", depth))
}

func dumpTag(w *bufio.Writer, t Tag, depth int) {
	switch v := t.(type) {
	case Byte:
		w.WriteString(strconv.FormatInt(int64(v), 10) + "b")
	case Short:
		w.WriteString(strconv.FormatInt(int64(v), 10) + "s")
	case Int:
		w.WriteString(strconv.FormatInt(int64(v), 10))
	case Long:
		w.WriteString(strconv.FormatInt(int64(v), 10) + "L")
	case Float:
		w.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32) + "f")
	case Double:
		w.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64) + "d")
	case String:
		w.WriteString(strconv.Quote(string(v)))
	case ByteArray:
		nums := make([]string, len(v))
		for i, b := range v {
			nums[i] = strconv.Itoa(int(int8(b)))
		}
		dumpArray(w, "B", nums)
	case IntArray:
		nums := make([]string, len(v))
		for i, x := range v {
			nums[i] = strconv.FormatInt(int64(x), 10)
		}
		dumpArray(w, "I", nums)
	case LongArray:
		nums := make([]string, len(v))
		for i, x := range v {
			nums[i] = strconv.FormatInt(x, 10)
		}
		dumpArray(w, "L", nums)
	case *List:
		if v.Len() == 0 {
			w.WriteString("[]")
			return
		}
		w.WriteString("[\n")
		for _, it := range v.items {
			indent(w, depth+1)
			dumpTag(w, it, depth+1)
			w.WriteByte('\n')
		}
		indent(w, depth)
		w.WriteString("]")
	case *Compound:
		if v.Len() == 0 {
			w.WriteString("{}")
			return
		}
		w.WriteString("{\n")
		for _, e := range v.entries {
			indent(w, depth+1)
			w.WriteString(dumpKey(e.Key))
			w.WriteString(": ")
			dumpTag(w, e.Tag, depth+1)
			w.WriteByte('\n')
		}
		indent(w, depth)
		w.WriteString("}")
	}
}

func dumpArray(w *bufio.Writer, prefix string, nums []string) {
	w.WriteString("[" + prefix + ";")
	if len(nums) > 0 {
		w.WriteString(" " + strings.Join(nums, ", "))
	}
	w.WriteString("]")
}
