package usecase

import (
	"regexp"
	"strings"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

const stubSegmentMaxChars = 500

var speakerPattern = regexp.MustCompile(`^([A-Z][\w .'-]{0,40}):\s*(.*)$`)

// stubSegments chunks a transcript without an LLM: split on blank
// lines and speaker prefixes, cap chunk length, mark everything
// unknown. The deterministic fallback when the provider is down or
// segmentation JSON never parses.
func stubSegments(content string) []*model.Segment {
	segments := []*model.Segment{}

	flush := func(speaker string, sb *strings.Builder) {
		text := strings.TrimSpace(sb.String())
		sb.Reset()
		if text == "" {
			return
		}
		for len(text) > stubSegmentMaxChars {
			cut := strings.LastIndexAny(text[:stubSegmentMaxChars], " \n")
			if cut <= 0 {
				cut = stubSegmentMaxChars
			}
			segments = append(segments, stubSegment(speaker, text[:cut]))
			text = strings.TrimSpace(text[cut:])
		}
		if text != "" {
			segments = append(segments, stubSegment(speaker, text))
		}
	}

	var sb strings.Builder
	speaker := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush(speaker, &sb)
			speaker = ""
			continue
		}

		if m := speakerPattern.FindStringSubmatch(trimmed); m != nil {
			flush(speaker, &sb)
			speaker = m[1]
			trimmed = m[2]
			if trimmed == "" {
				continue
			}
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(trimmed)
	}
	flush(speaker, &sb)

	return segments
}

func stubSegment(speaker, content string) *model.Segment {
	return &model.Segment{
		Content:   content,
		Speaker:   speaker,
		Knowledge: types.KnowledgeUnknown,
	}
}
