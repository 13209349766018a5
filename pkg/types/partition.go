package types

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPartitionTemplate partitions rows by calendar day.
const DefaultPartitionTemplate = "%Y-%m-%d"

// strftime conversion specifiers supported by partition templates,
// mapped to their Go reference-time layout equivalents.
var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'j': "002",
}

// PartitionTemplate derives a partition key from a row timestamp. Two
// rows with the same timestamp under the same template always yield the
// same key, on every process.
type PartitionTemplate struct {
	format string
	layout string
}

// NewPartitionTemplate parses a strftime-style template (e.g.
// "%Y-%m-%d") into a partition template. Literal text is carried
// through unchanged; an unsupported specifier is a configuration error.
func NewPartitionTemplate(format string) (PartitionTemplate, error) {
	if format == "" {
		return PartitionTemplate{}, fmt.Errorf("types: partition template must not be empty")
	}

	var layout strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			layout.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return PartitionTemplate{}, fmt.Errorf("types: partition template %q ends with a bare %%", format)
		}
		part, ok := strftimeLayouts[format[i]]
		if !ok {
			return PartitionTemplate{}, fmt.Errorf("types: partition template %q uses unsupported specifier %%%c", format, format[i])
		}
		layout.WriteString(part)
	}

	return PartitionTemplate{format: format, layout: layout.String()}, nil
}

// PartitionKey returns the key for a Unix-nanosecond timestamp.
// Timestamps are truncated in UTC.
func (t PartitionTemplate) PartitionKey(tsNanos int64) string {
	return time.Unix(0, tsNanos).UTC().Format(t.layout)
}

// String returns the original strftime-style template.
func (t PartitionTemplate) String() string {
	return t.format
}
