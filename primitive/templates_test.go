package primitive_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcheck/primitive"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to primitive.KindEnum
		src, typ string
		lines    []string
		fallible bool
		imports  []string
	}{
		{
			name: "widening cast",
			from: primitive.KindInt32, to: primitive.KindInt64,
			src: "s.Count", typ: "int64",
			lines: []string{"return int64(s.Count)"},
		},
		{
			name: "string to int",
			from: primitive.KindString, to: primitive.KindInt,
			src: "s.Age", typ: "int",
			lines:    []string{"v, err := strconv.Atoi(s.Age)", "return int(v), err"},
			fallible: true,
			imports:  []string{"strconv"},
		},
		{
			name: "string to uint16",
			from: primitive.KindString, to: primitive.KindUint16,
			src: "s.Port", typ: "uint16",
			lines:    []string{"v, err := strconv.ParseUint(s.Port, 10, 16)", "return uint16(v), err"},
			fallible: true,
			imports:  []string{"strconv"},
		},
		{
			name: "int64 to named string",
			from: primitive.KindInt64, to: primitive.KindString,
			src: "s.ID", typ: "dto.Code",
			lines:   []string{"return dto.Code(strconv.FormatInt(int64(s.ID), 10))"},
			imports: []string{"strconv"},
		},
		{
			name: "float to string",
			from: primitive.KindFloat32, to: primitive.KindString,
			src: "s.Ratio", typ: "string",
			lines:   []string{"return strconv.FormatFloat(float64(s.Ratio), 'f', -1, 32)"},
			imports: []string{"strconv"},
		},
		{
			name: "time to string",
			from: primitive.KindTime, to: primitive.KindString,
			src: "s.At", typ: "string",
			lines:   []string{"return s.At.Format(time.RFC3339Nano)"},
			imports: []string{"time"},
		},
		{
			name: "string to duration",
			from: primitive.KindString, to: primitive.KindDuration,
			src: "s.TTL", typ: "time.Duration",
			lines:    []string{"return time.ParseDuration(s.TTL)"},
			fallible: true,
			imports:  []string{"time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, ok := primitive.Convert(tt.from, tt.to, tt.src, tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.lines, conv.Lines, spew.Sdump(conv))
			assert.Equal(t, tt.fallible, conv.Fallible)
			assert.Equal(t, tt.imports, conv.Imports)
		})
	}
}

func TestConvertUnsupported(t *testing.T) {
	t.Parallel()

	_, ok := primitive.Convert(primitive.KindUUID, primitive.KindInt, "s.ID", "int")
	assert.False(t, ok)

	// a named bool cannot be the direct result of strconv.ParseBool
	_, ok = primitive.Convert(primitive.KindString, primitive.KindBool, "s.Flag", "dto.Flag")
	assert.False(t, ok)
}
