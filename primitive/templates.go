package primitive

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"
)

type conversionTemplate struct {
	lines    []string
	fallible bool
}

var templates map[ConversionPair]conversionTemplate

func init() {
	templates = map[ConversionPair]conversionTemplate{}

	// CategorySafeNumber
	// CategoryUnsafeNumber
	for fromKind := KindEnum(0); int(fromKind) < KindTotal; fromKind++ {
		if !fromKind.IsNumber() {
			continue
		}

		for toKind := KindEnum(0); int(toKind) < KindTotal; toKind++ {
			if !toKind.IsNumber() {
				continue
			}

			templates[ConversionPair{fromKind, toKind}] = conversionTemplate{
				lines: []string{"return {{.dstType}}({{.src}})"},
			}
		}
	}

	// CategoryTextNumber
	for numberKind := KindEnum(0); int(numberKind) < KindTotal; numberKind++ {
		switch {
		case numberKind == KindInt:
			templates[ConversionPair{numberKind, KindString}] = conversionTemplate{
				lines: []string{`return {{cast "strconv.Itoa(" .src ")"}}`},
			}
			templates[ConversionPair{KindString, numberKind}] = conversionTemplate{
				lines: []string{
					"v, err := strconv.Atoi({{.src}})",
					"return {{.dstType}}(v), err",
				},
				fallible: true,
			}

		case numberKind.IsSigned():
			templates[ConversionPair{numberKind, KindString}] = conversionTemplate{
				lines: []string{`return {{cast "strconv.FormatInt(int64(" .src "), 10)"}}`},
			}
			templates[ConversionPair{KindString, numberKind}] = conversionTemplate{
				lines: []string{
					"v, err := strconv.ParseInt({{.src}}, 10, {{.bits}})",
					"return {{.dstType}}(v), err",
				},
				fallible: true,
			}

		case numberKind.IsUnsigned():
			templates[ConversionPair{numberKind, KindString}] = conversionTemplate{
				lines: []string{`return {{cast "strconv.FormatUint(uint64(" .src "), 10)"}}`},
			}
			templates[ConversionPair{KindString, numberKind}] = conversionTemplate{
				lines: []string{
					"v, err := strconv.ParseUint({{.src}}, 10, {{.bits}})",
					"return {{.dstType}}(v), err",
				},
				fallible: true,
			}

		case numberKind.IsFloat():
			templates[ConversionPair{numberKind, KindString}] = conversionTemplate{
				lines: []string{`return {{cast "strconv.FormatFloat(float64(" .src "), 'f', -1, " .bits ")"}}`},
			}
			templates[ConversionPair{KindString, numberKind}] = conversionTemplate{
				lines: []string{
					"v, err := strconv.ParseFloat({{.src}}, {{.bits}})",
					"return {{.dstType}}(v), err",
				},
				fallible: true,
			}
		}
	}

	// CategoryNumericBool
	for numberKind := KindEnum(0); int(numberKind) < KindTotal; numberKind++ {
		if !numberKind.IsInteger() {
			continue
		}

		templates[ConversionPair{numberKind, KindBool}] = conversionTemplate{
			lines: []string{"return {{.src}} != 0"},
		}
		templates[ConversionPair{KindBool, numberKind}] = conversionTemplate{
			lines: []string{
				"if {{.src}} {",
				"	return 1",
				"}",
				"return 0",
			},
		}
	}

	// CategoryTextualBool
	templates[ConversionPair{KindString, KindBool}] = conversionTemplate{
		lines:    []string{"return strconv.ParseBool({{.src}})"},
		fallible: true,
	}
	templates[ConversionPair{KindBool, KindString}] = conversionTemplate{
		lines: []string{`return {{cast "strconv.FormatBool(" .src ")"}}`},
	}

	// CategoryDatetime
	templates[ConversionPair{KindString, KindTime}] = conversionTemplate{
		lines:    []string{"return time.Parse(time.RFC3339Nano, {{.src}})"},
		fallible: true,
	}
	templates[ConversionPair{KindTime, KindString}] = conversionTemplate{
		lines: []string{`return {{cast "" .src ".Format(time.RFC3339Nano)"}}`},
	}

	// CategoryTimestamp
	for numberKind := KindEnum(0); int(numberKind) < KindTotal; numberKind++ {
		if !numberKind.IsInteger() || numberKind == KindUint64 {
			continue
		}

		templates[ConversionPair{numberKind, KindTime}] = conversionTemplate{
			lines: []string{"return time.Unix(int64({{.src}}), 0)"},
		}

		if numberKind.IsSigned() {
			templates[ConversionPair{KindTime, numberKind}] = conversionTemplate{
				lines: []string{"return {{.dstType}}({{.src}}.Unix())"},
			}
		}
	}

	// CategoryDuration
	templates[ConversionPair{KindString, KindDuration}] = conversionTemplate{
		lines:    []string{"return time.ParseDuration({{.src}})"},
		fallible: true,
	}
	templates[ConversionPair{KindDuration, KindString}] = conversionTemplate{
		lines: []string{`return {{cast "" .src ".String()"}}`},
	}

	// CategoryNanoseconds
	for numberKind := KindEnum(0); int(numberKind) < KindTotal; numberKind++ {
		if !numberKind.IsInteger() || numberKind == KindUint64 {
			continue
		}

		templates[ConversionPair{numberKind, KindDuration}] = conversionTemplate{
			lines: []string{"return time.Duration({{.src}})"},
		}

		if numberKind.IsSigned() {
			templates[ConversionPair{KindDuration, numberKind}] = conversionTemplate{
				lines: []string{"return {{.dstType}}({{.src}}.Nanoseconds())"},
			}
		}
	}

	// CategorySeconds
	templates[ConversionPair{KindFloat32, KindDuration}] = conversionTemplate{
		lines: []string{"return time.Duration(float64({{.src}}) * float64(time.Second))"},
	}
	templates[ConversionPair{KindFloat64, KindDuration}] = conversionTemplate{
		lines: []string{"return time.Duration({{.src}} * float64(time.Second))"},
	}
	templates[ConversionPair{KindDuration, KindFloat32}] = conversionTemplate{
		lines: []string{"return float32({{.src}}.Seconds())"},
	}
	templates[ConversionPair{KindDuration, KindFloat64}] = conversionTemplate{
		lines: []string{"return {{.src}}.Seconds()"},
	}
}

// Conversion is the body of a function literal converting one primitive value
// into another.
type Conversion struct {
	// Lines are the statements of the function body, without indentation.
	Lines []string
	// Fallible is set when the body returns (value, error).
	Fallible bool
	// Imports lists the standard packages the body refers to.
	Imports []string

	// Category is the category of the conversion.
	Category CategoryEnum
}

// Convert renders the conversion of srcExpr (of kind from) into a value of
// dstType (of kind to). It returns false when no conversion is known for the
// pair or when the destination is a named type whose conversion would change
// the function result type.
func Convert(from, to KindEnum, srcExpr, dstType string) (Conversion, bool) {
	tmpl, ok := templates[ConversionPair{from, to}]
	if !ok {
		return Conversion{}, false
	}

	if tmpl.fallible && !strings.Contains(strings.Join(tmpl.lines, "\n"), "{{.dstType}}") &&
		dstType != to.BasicName() && !to.IsSpecial() {
		return Conversion{}, false
	}

	bits := ""
	if to.IsNumber() {
		bits = strconv.Itoa(to.Bits())
	} else if from.IsNumber() {
		bits = strconv.Itoa(from.Bits())
	}

	funcs := template.FuncMap{
		"cast": func(parts ...string) string {
			expr := strings.Join(parts, "")
			if dstType == to.BasicName() || to.IsSpecial() {
				return expr
			}

			return dstType + "(" + expr + ")"
		},
	}

	data := map[string]string{
		"src":     srcExpr,
		"dstType": dstType,
		"bits":    bits,
	}

	conv := Conversion{Fallible: tmpl.fallible, Category: CategoryOf(from, to)}
	for _, line := range tmpl.lines {
		t, err := template.New("line").Funcs(funcs).Parse(line)
		if err != nil {
			panic(err)
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			panic(err)
		}

		conv.Lines = append(conv.Lines, buf.String())
	}

	body := strings.Join(conv.Lines, "\n")
	for _, pkg := range []string{"strconv", "time"} {
		if strings.Contains(body, pkg+".") {
			conv.Imports = append(conv.Imports, pkg)
		}
	}

	return conv, true
}
