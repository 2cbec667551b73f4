package forensic

import "strings"

// Payload is a provider-neutral view of one model response.
type Payload struct {
	Candidates []Candidate
}

// Candidate is one alternative response, made of ordered parts.
type Candidate struct {
	Parts []Part
}

// Part is one segment of a candidate. At most one of Text, InlineData and
// CodeOutput is normally set.
type Part struct {
	Text string
	// Thought marks reasoning summaries, which never carry the report.
	Thought    bool
	InlineData *Image
	// CodeOutput is the stdout of code the provider executed.
	CodeOutput string
}

// TextPayload wraps a single text segment, for providers that only return text.
func TextPayload(text string) Payload {
	return Payload{Candidates: []Candidate{{Parts: []Part{{Text: text}}}}}
}

// Decode extracts an audit result from a provider payload.
//
// The report is taken from the first non-thought text part, in candidate
// then part order, that looks like a JSON object and passes ParseReport.
// If no single part qualifies, the concatenated text of the first
// candidate is tried. The plot is the first inline image part, chosen
// independently of the report. Trace collects every code output in order.
//
// When no report can be extracted Decode returns a *DecodeError.
func Decode(p Payload) (*AuditResult, error) {
	result := &AuditResult{}
	var lastErr error
	tried := 0

	for _, c := range p.Candidates {
		for _, part := range c.Parts {
			switch {
			case part.InlineData != nil:
				if result.Plot == nil && isImageMIME(part.InlineData.MIMEType) && len(part.InlineData.Data) > 0 {
					result.Plot = part.InlineData
				}
			case part.CodeOutput != "":
				result.Trace = append(result.Trace, part.CodeOutput)
			case part.Text != "" && !part.Thought && result.Report == nil:
				text := normalize(part.Text)
				if !strings.HasPrefix(text, "{") {
					continue
				}
				tried++
				report, err := parseReport(text)
				if err != nil {
					lastErr = err
					continue
				}
				result.Report = report
			}
		}
	}

	if result.Report == nil && len(p.Candidates) > 0 {
		if text := normalize(p.Candidates[0].Text()); text != "" {
			tried++
			report, err := parseReport(text)
			if err != nil {
				lastErr = err
			} else {
				result.Report = report
			}
		}
	}

	if result.Report == nil {
		return nil, &DecodeError{Segments: tried, Err: lastErr}
	}
	return result, nil
}

// Text concatenates the candidate's non-thought text parts.
func (c Candidate) Text() string {
	var b strings.Builder
	for _, part := range c.Parts {
		if part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func parseReport(text string) (*ForensicReport, error) {
	return ParseReport([]byte(text))
}

// normalize trims whitespace and strips one surrounding markdown code fence.
func normalize(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return text
	}
	body := strings.TrimSpace(text[nl+1:])
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
