package entities

import "strings"

// QAPair is one interviewer question with the candidate answer that followed.
// Either side may be empty.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PairQuestions walks grouped lines in order and pairs every interviewer line
// with the next candidate line. An interviewer line followed by another
// interviewer line yields a pair without answer; a candidate line with no
// pending question yields a pair without question. Lines from other speakers
// are skipped.
func PairQuestions(lines []GroupedLine) []QAPair {
	var (
		pairs   []QAPair
		pending string
		hasQ    bool
	)
	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		switch {
		case line.Speaker.IsInterviewer():
			if hasQ {
				pairs = append(pairs, QAPair{Question: pending})
			}
			pending, hasQ = text, true
		case line.Speaker.IsCandidate():
			if hasQ {
				pairs = append(pairs, QAPair{Question: pending, Answer: text})
				pending, hasQ = "", false
			} else {
				pairs = append(pairs, QAPair{Answer: text})
			}
		}
	}
	if hasQ {
		pairs = append(pairs, QAPair{Question: pending})
	}
	return pairs
}
