package downloader

import (
	"fmt"
	"strings"

	"pixiv-novel-downloader/model"
	"pixiv-novel-downloader/text"
)

var separator = strings.Repeat("=", 50)

// FormatNovel renders one record as the final .txt payload: a metadata
// header, the caption when present, then the converted body.
func FormatNovel(record *model.NovelRecord) string {
	tags := make([]string, 0, len(record.Tags))
	for _, tag := range record.Tags {
		if tag.TranslatedName != "" {
			tags = append(tags, fmt.Sprintf("%v (%v)", tag.Name, tag.TranslatedName))
		} else {
			tags = append(tags, tag.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %v\n", record.Title)
	fmt.Fprintf(&b, "Author: %v\n", record.Author.Name)
	fmt.Fprintf(&b, "ID: %v\n", record.ID)
	fmt.Fprintf(&b, "Date: %v\n", record.CreateDate)
	fmt.Fprintf(&b, "Tags: %v\n", strings.Join(tags, ", "))
	if record.Series != nil {
		fmt.Fprintf(&b, "Series: %v (ID: %v)\n", record.Series.Title, record.Series.ID)
	}
	b.WriteString("\n" + separator + "\n\n")

	if record.Caption != "" {
		b.WriteString(text.ToText(record.Caption))
		b.WriteString("\n" + separator + "\n\n")
	}

	b.WriteString(text.ToText(record.Body))
	return b.String()
}
