package diagnostic

import (
	"fmt"
	"slices"
	"strings"
)

// Finding codes.
const (
	CodeTypeMismatch         = "type_mismatch"
	CodeNullableMismatch     = "nullable_mismatch"
	CodeContainerMismatch    = "collection_container_mismatch"
	CodeElementMismatch      = "collection_element_mismatch"
	CodeNestedMappingMissing = "nested_mapping_missing"
	CodeRecursiveMapping     = "recursive_mapping"
	CodeUnmappedSource       = "unmapped_source_member"
	CodeUnmappedDestination  = "unmapped_destination_member"
	CodeDuplicateMapping     = "duplicate_mapping"
	CodeRedundantOverride    = "redundant_override"
	CodeIOCall               = "mapping_io_call"
	CodeBlockingCall         = "mapping_blocking_call"
	CodeNondeterministic     = "mapping_nondeterministic"
	CodeRepeatedEnumeration  = "mapping_repeated_enumeration"
	CodeComplexOperation     = "mapping_complex_operation"
	CodeConverterSignature   = "converter_signature"
	CodeConverterNilHandling = "converter_nil_handling"
)

// Entry describes one finding code.
type Entry struct {
	Code     string
	Title    string
	Severity Severity
	// Template is the fmt format of the message; every verb is %s.
	Template string
	// Description is markdown.
	Description string
}

func (e Entry) format(args []string) string {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}

	return fmt.Sprintf(e.Template, vals...)
}

// Markdown renders the entry as a markdown section.
func (e Entry) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", e.Title)
	fmt.Fprintf(&b, "`%s` · default severity **%s**\n\n", e.Code, e.Severity)
	b.WriteString(strings.TrimSpace(e.Description))
	b.WriteString("\n")

	return b.String()
}

var catalog = []Entry{
	{
		Code:     CodeTypeMismatch,
		Title:    "Incompatible member types",
		Severity: SeverityError,
		Template: "member %s: cannot map %s to %s",
		Description: `
A source member and the destination member of the same name have types the
mapper cannot convert between. The mapping fails at run time.

Add a ` + "`ForMember`" + ` override that converts the value with ` + "`automap.MapFrom`" + `
(or ` + "`automap.MapFromErr`" + ` when the conversion can fail), or ignore the member.

` + "```go" + `
automap.CreateMap[User, UserDTO](p).
	ForMember("Age", automap.MapFromErr(func(s User) (int, error) {
		return strconv.Atoi(s.Age)
	}))
` + "```",
	},
	{
		Code:     CodeNullableMismatch,
		Title:    "Pointer and value members",
		Severity: SeverityError,
		Template: "member %s: cannot map %s to %s without a nil check",
		Description: `
Exactly one side of a member pair is a pointer. A nil source pointer mapped to
a value member silently becomes the zero value, which is reported as an
error. A value mapped to a pointer member is reported as information only.

Use ` + "`automap.ValueOr`" + ` to choose the fallback explicitly, or ignore the member.`,
	},
	{
		Code:     CodeContainerMismatch,
		Title:    "Incompatible collection kinds",
		Severity: SeverityError,
		Template: "member %s: cannot map %s to %s, the collection kinds differ",
		Description: `
Sequences (arrays, slices), sets (` + "`map[K]struct{}`" + `, ` + "`map[K]bool`" + `), maps and
channels are distinct families. The mapper never converts between them.`,
	},
	{
		Code:     CodeElementMismatch,
		Title:    "Incompatible collection elements",
		Severity: SeverityWarning,
		Template: "member %s: elements of %s cannot be mapped to elements of %s",
		Description: `
Both members are collections of the same family but their elements (or map
keys) cannot be converted. Map the member explicitly or ignore it.`,
	},
	{
		Code:     CodeNestedMappingMissing,
		Title:    "Missing nested mapping",
		Severity: SeverityError,
		Template: "member %s: no mapping from %s to %s is declared",
		Description: `
A member pairs two struct types (possibly inside pointers or collections) and
no ` + "`CreateMap`" + ` for that pair exists anywhere in the analysed packages or
their dependencies. Declare the nested mapping:

` + "```go" + `
automap.CreateMap[Address, AddressDTO](p)
` + "```",
	},
	{
		Code:     CodeRecursiveMapping,
		Title:    "Recursive mapping",
		Severity: SeverityWarning,
		Template: "mapping %s is recursive: %s",
		Description: `
Following the nested mappings of this declaration leads back to it. Deep or
cyclic object graphs recurse without bound. Add ` + "`MaxDepth`" + ` to the
declaration that closes the cycle.`,
	},
	{
		Code:     CodeUnmappedSource,
		Title:    "Unmapped source member",
		Severity: SeverityInfo,
		Template: "source member %s of %s is not mapped",
		Description: `
No destination member has the name of this source member and no override
reads it. Its value is dropped.`,
	},
	{
		Code:     CodeUnmappedDestination,
		Title:    "Destination member left at zero value",
		Severity: SeverityHint,
		Template: "destination member %s of %s has no source and keeps its zero value",
		Description: `
No source member has the name of this destination member and no override
populates it. Map it from another member or ignore it explicitly.`,
	},
	{
		Code:     CodeDuplicateMapping,
		Title:    "Duplicate mapping",
		Severity: SeverityWarning,
		Template: "mapping %s is already declared at %s",
		Description: `
The same source and destination pair is declared more than once. The first
declaration, by file path then position, is canonical; later ones are
reported. A declaration that only repeats the reverse of an existing
` + "`ReverseMap`" + ` can be merged into it.`,
	},
	{
		Code:     CodeRedundantOverride,
		Title:    "Redundant override",
		Severity: SeverityInfo,
		Template: "override of member %s repeats what the mapper does by default",
		Description: `
The override reads the source member of the same name and both members have
identical types. Remove it.`,
	},
	{
		Code:     CodeIOCall,
		Title:    "I/O inside a mapping",
		Severity: SeverityWarning,
		Template: "override of member %s calls %s",
		Description: `
The override calls into a database, file system, network or reflection
package. Mappings run per object; load the data before mapping instead.`,
	},
	{
		Code:     CodeBlockingCall,
		Title:    "Blocking call inside a mapping",
		Severity: SeverityWarning,
		Template: "override of member %s blocks on %s",
		Description: `
The override receives from a channel, waits on a group or condition, or
sleeps. Mapping should not synchronise with other goroutines.`,
	},
	{
		Code:     CodeNondeterministic,
		Title:    "Non-deterministic mapping",
		Severity: SeverityInfo,
		Template: "override of member %s calls %s",
		Description: `
The override reads the clock, a random source or generates identifiers, so
mapping the same value twice gives different results.`,
	},
	{
		Code:     CodeRepeatedEnumeration,
		Title:    "Repeated enumeration",
		Severity: SeverityInfo,
		Template: "override of member %s enumerates %s more than once",
		Description: `
The same collection is traversed several times within one override. Compute
the result in a single pass.`,
	},
	{
		Code:     CodeComplexOperation,
		Title:    "Complex mapping expression",
		Severity: SeverityInfo,
		Template: "override of member %s contains nested loops",
		Description: `
Nested loops inside an override hide quadratic work in a mapping. Move the
computation into a named function that can be tested on its own.`,
	},
	{
		Code:     CodeConverterSignature,
		Title:    "Invalid converter",
		Severity: SeverityError,
		Template: "converter for member %s is invalid: %s",
		Description: `
A converter takes exactly one argument and returns ` + "`U`" + `, ` + "`(U, bool)`" + `,
` + "`(U, error)`" + ` or ` + "`(U, bool, error)`" + `. Its argument must accept the source member and
its result must be assignable to the destination member.`,
	},
	{
		Code:     CodeConverterNilHandling,
		Title:    "Converter without nil check",
		Severity: SeverityWarning,
		Template: "converter for member %s dereferences %s before checking it for nil",
		Description: `
The converter takes a pointer and dereferences it before comparing it with
nil. A nil source member panics at mapping time.`,
	},
}

var index = func() map[string]Entry {
	m := make(map[string]Entry, len(catalog))
	for _, e := range catalog {
		m[e.Code] = e
	}

	return m
}()

// Lookup returns the catalog entry of a code.
func Lookup(code string) (Entry, bool) {
	e, ok := index[code]

	return e, ok
}

// Catalog returns every entry, sorted by code.
func Catalog() []Entry {
	res := slices.Clone(catalog)
	slices.SortFunc(res, func(a, b Entry) int { return strings.Compare(a.Code, b.Code) })

	return res
}
