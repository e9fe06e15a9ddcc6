// Package kfmt implements the kernel's formatted output. All kernel
// subsystems log through this package; output is buffered in a ring buffer
// until a sink is attached via SetOutputSink.
package kfmt

import (
	"io"
	"reflect"
	"strconv"
	"sync"
)

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")

	// earlyPrintBuffer stores Printf output produced before a sink is
	// attached.
	earlyPrintBuffer ringBuffer

	// outputSink receives the output of Printf. If nil, output is
	// redirected to earlyPrintBuffer.
	outputSink io.Writer

	// sinkMu serializes writes to the sink and the early buffer. Interrupt
	// sources may run on goroutines other than the one holding the CPU.
	sinkMu sync.Mutex
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently attached output sink.
func GetOutputSink() io.Writer {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	return outputSink
}

// Printf writes formatted output to the active sink. It supports the
// following subset of the fmt verbs:
//
//	%s strings, byte slices, errors and fmt.Stringer values
//	%d base 10 integers
//	%o base 8 integers
//	%x base 16 integers, lower-case
//	%t booleans
//	%% a literal percent sign
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
func Printf(format string, args ...interface{}) {
	Fprintf(sinkWriter{}, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		out     = make([]byte, 0, len(format)+32)
		nextArg int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			out = append(out, format[i])
			continue
		}

		width := 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			out = append(out, errNoVerb...)
			break
		}

		switch verb := format[i]; verb {
		case '%':
			out = append(out, '%')
		case 's', 'd', 'o', 'x', 't':
			if nextArg >= len(args) {
				out = append(out, errMissingArg...)
				continue
			}
			out = appendArg(out, verb, width, args[nextArg])
			nextArg++
		default:
			out = append(out, errNoVerb...)
		}
	}

	for ; nextArg < len(args); nextArg++ {
		out = append(out, errExtraArg...)
	}

	if w == nil {
		w = sinkWriter{}
	}
	w.Write(out)
}

func appendArg(out []byte, verb byte, width int, arg interface{}) []byte {
	switch verb {
	case 's':
		return appendString(out, width, arg)
	case 't':
		if b, ok := arg.(bool); ok {
			return strconv.AppendBool(out, b)
		}
		return append(out, errWrongArgType...)
	case 'o':
		return appendInt(out, 8, width, arg)
	case 'x':
		return appendInt(out, 16, width, arg)
	default:
		return appendInt(out, 10, width, arg)
	}
}

func appendString(out []byte, width int, arg interface{}) []byte {
	var str string

	switch v := arg.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	case error:
		str = v.Error()
	case interface{ String() string }:
		str = v.String()
	default:
		return append(out, errWrongArgType...)
	}

	out = appendPadding(out, ' ', width-len(str))
	return append(out, str...)
}

// appendInt formats any signed or unsigned integer kind, including named
// integer types such as thread ids and errno values.
func appendInt(out []byte, base, width int, arg interface{}) []byte {
	var (
		digits []byte
		neg    bool
		padCh  byte = '0'
	)

	if base == 10 {
		padCh = ' '
	}

	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := rv.Int()
		if v < 0 {
			neg = true
			digits = strconv.AppendUint(nil, uint64(-v), base)
		} else {
			digits = strconv.AppendUint(nil, uint64(v), base)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		digits = strconv.AppendUint(nil, rv.Uint(), base)
	default:
		return append(out, errWrongArgType...)
	}

	padLen := width - len(digits)
	if neg {
		padLen--
		if padCh == '0' {
			out = append(out, '-')
			out = appendPadding(out, padCh, padLen)
			return append(out, digits...)
		}
		out = appendPadding(out, padCh, padLen)
		out = append(out, '-')
		return append(out, digits...)
	}

	out = appendPadding(out, padCh, padLen)
	return append(out, digits...)
}

func appendPadding(out []byte, ch byte, count int) []byte {
	for ; count > 0; count-- {
		out = append(out, ch)
	}
	return out
}

// sinkWriter forwards writes to the currently attached output sink or to the
// early print buffer if no sink is attached.
type sinkWriter struct{}

func (sinkWriter) Write(p []byte) (int, error) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if outputSink != nil {
		return outputSink.Write(p)
	}
	return earlyPrintBuffer.Write(p)
}

// ModuleWriter returns a writer that prefixes every line with "[module] "
// and forwards it to the active output sink.
func ModuleWriter(module string) io.Writer {
	return &PrefixWriter{
		Sink:   sinkWriter{},
		Prefix: []byte("[" + module + "] "),
	}
}
