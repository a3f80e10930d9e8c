package agents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AuditContradiction is one stats-audit finding that disagrees with the
// model's prediction, at a labeled severity.
type AuditContradiction struct {
	Statistic string `json:"statistic"`
	Severity string `json:"severity"` // "low" | "medium" | "high"
	Detail string `json:"detail"`
}

// AuditResults is the labeled `AuditResultsJSON` block the stats agent's
// output is expected to embed.
type AuditResults struct {
	Contradictions []AuditContradiction `json:"contradictions"`
}

const auditMarker = "AuditResultsJSON:"

// ParseAuditResults extracts the AuditResultsJSON block from a stats agent's
// free-text output, if present. Absence of the marker is not an error: most
// stats turns never find a contradiction worth flagging.
func ParseAuditResults(statsOutput string) (*AuditResults, bool) {
	idx := strings.Index(statsOutput, auditMarker)
	if idx == -1 {
		return nil, false
	}
	raw := strings.TrimSpace(statsOutput[idx+len(auditMarker):])
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return nil, false
	}
	depth := 0
	end := -1
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, false
	}
	var out AuditResults
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, false
	}
	return &out, true
}

// HighSeverity reports whether an audit has at least one high-severity
// contradiction, the controller's trigger for the bounded re-queue.
func (a *AuditResults) HighSeverity() bool {
	if a == nil {
		return false
	}
	for _, c := range a.Contradictions {
		if c.Severity == "high" {
			return true
		}
	}
	return false
}

// ContradictionPacket builds the compact instruction the controller hands
// to the re-queued model-inspector: the high-severity findings only, not
// the full stats output.
func ContradictionPacket(a *AuditResults) string {
	var b strings.Builder
	b.WriteString("Reconcile your prior explanation with these high-severity contradictions found by the stats audit:\n")
	for _, c := range a.Contradictions {
		if c.Severity != "high" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Statistic, c.Detail)
	}
	return b.String()
}

// FallbackSynthesis formats a deterministic response when the
// Final-Synthesizer call itself fails: the baseline probability, implied
// moneylines, and excerpted specialist outputs, in workflow order.
func FallbackSynthesis(pHome float64, workflow []Step, outputs map[string]string) string {
	var b strings.Builder
	pAway := 1 - pHome
	fmt.Fprintf(&b, "Model estimate: home %.1f%% / away %.1f%%.\n", pHome*100, pAway*100)
	fmt.Fprintf(&b, "Implied moneyline: home %s / away %s.\n", impliedMoneyline(pHome), impliedMoneyline(pAway))
	for _, step := range workflow {
		out, ok := outputs[string(step.Agent)]
		if !ok || out == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", step.Agent, excerpt(out, 280))
	}
	return b.String()
}

// impliedMoneyline converts a win probability into American moneyline
// notation.
func impliedMoneyline(p float64) string {
	if p <= 0 || p >= 1 {
		return "n/a"
	}
	if p >= 0.5 {
		return fmt.Sprintf("-%d", int(p/(1-p)*100+0.5))
	}
	return fmt.Sprintf("+%d", int((1-p)/p*100+0.5))
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
