// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package introspect

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/tagly/format"
	"github.com/viant/tagly/format/text"
)

// TagName is the struct tag key for binding options.
const TagName = "jbind"

// fieldTag is the effective binding configuration of a struct field.
type fieldTag struct {
	name     string
	explicit bool // name was given by a tag
	ignore   bool
	unwrap   bool
	prefix   string
	suffix   string
	caseFmt  text.CaseFormat
	aliases  []string
	views    []string
	id       bool
	rest     bool
	required bool
}

// resolveFieldTag combines the json, format, and jbind tags of sf.
//
// A json tag name takes precedence over a format tag name or case. A field is
// ignored if its json tag is "-" or its format tag says so. An anonymous
// struct field without an explicit name is unwrapped.
func resolveFieldTag(sf reflect.StructField) (fieldTag, error) {
	ft := fieldTag{name: sf.Name}

	if raw, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(raw, ",")
		if name == "-" && !strings.Contains(raw, ",") {
			ft.ignore = true
		} else if name != "" {
			ft.name, ft.explicit = name, true
		}
	}

	fmtTag, err := format.Parse(sf.Tag)
	if err != nil {
		return ft, fmt.Errorf("field %s: format tag: %w", sf.Name, err)
	}
	if fmtTag != nil {
		ft.ignore = ft.ignore || fmtTag.Ignore
		ft.unwrap = fmtTag.Inline
		if !ft.explicit && (fmtTag.Name != "" || fmtTag.CaseFormat != "") {
			base := fmtTag.Name
			if base == "" {
				base = sf.Name
			}
			ft.name, ft.explicit = formatName(base, text.CaseFormat(fmtTag.CaseFormat)), true
		}
	}

	if sf.Anonymous && !ft.explicit {
		ft.unwrap = true
	}
	if raw, ok := sf.Tag.Lookup(TagName); ok {
		if err := ft.parseOptions(raw); err != nil {
			return ft, fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}
	return ft, nil
}

func (ft *fieldTag) parseOptions(raw string) error {
	for opt := range strings.SplitSeq(raw, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "alias":
			ft.aliases = append(ft.aliases, strings.Split(val, "|")...)
		case "views":
			ft.views = append(ft.views, strings.Split(val, "|")...)
		case "unwrap":
			ft.unwrap = true
		case "prefix":
			ft.unwrap, ft.prefix = true, val
		case "suffix":
			ft.unwrap, ft.suffix = true, val
		case "case":
			ft.unwrap, ft.caseFmt = true, text.CaseFormat(val)
		case "id":
			ft.id = true
		case "rest":
			ft.rest = true
		case "required":
			ft.required = true
		default:
			return fmt.Errorf("unknown %s option %q", TagName, key)
		}
	}
	return nil
}

// typeOptions are options set on a blank field of a struct type:
//
//	_ struct{} `jbind:"ignoreUnknown,array"`
type typeOptions struct {
	ignoreUnknown bool
	array         bool
}

func parseTypeOptions(raw string) (typeOptions, error) {
	var to typeOptions
	for opt := range strings.SplitSeq(raw, ",") {
		switch opt = strings.TrimSpace(opt); opt {
		case "":
		case "ignoreUnknown":
			to.ignoreUnknown = true
		case "array":
			to.array = true
		default:
			return to, fmt.Errorf("unknown %s type option %q", TagName, opt)
		}
	}
	return to, nil
}

// formatName renders name in case format cf. If the case of name cannot be
// detected, it is treated as an exported Go identifier.
func formatName(name string, cf text.CaseFormat) string {
	if !cf.IsDefined() {
		return name
	}
	src := text.DetectCaseFormat(name)
	if !src.IsDefined() {
		src = text.CaseFormatUpperCamel
	}
	return src.Format(name, cf)
}
