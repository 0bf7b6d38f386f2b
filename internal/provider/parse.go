package provider

import (
	"fmt"
	"strings"

	"autometa/internal/model"
)

// ParseMetadata extracts the structured payload from the model's text
// response. The expected shape is labelled lines:
//
//	Title: ...
//	Description: ...
//	Keywords: one, two, three
//
// Missing title or keywords make the response unusable.
func ParseMetadata(text string) (*model.Metadata, error) {
	md := &model.Metadata{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasLabel(line, "Title"):
			md.Title = labelValue(line)
		case hasLabel(line, "Description"):
			md.Description = labelValue(line)
		case hasLabel(line, "Keywords"):
			for _, kw := range strings.Split(labelValue(line), ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					md.Keywords = append(md.Keywords, kw)
				}
			}
		}
	}
	if md.Title == "" {
		return nil, fmt.Errorf("response missing title")
	}
	if len(md.Keywords) == 0 {
		return nil, fmt.Errorf("response missing keywords")
	}
	return md, nil
}

func hasLabel(line, label string) bool {
	return len(line) > len(label) && strings.EqualFold(line[:len(label)], label) &&
		strings.HasPrefix(line[len(label):], ":")
}

func labelValue(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}
