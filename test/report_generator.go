package test

import (
	"fmt"
	"html/template"
	"os"
	"time"
)

// TestSuite collects the results of one harness execution.
type TestSuite struct {
	Name        string       `json:"name"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	TotalTests  int          `json:"total_tests"`
	PassedTests int          `json:"passed_tests"`
	FailedTests int          `json:"failed_tests"`
	Results     []TestResult `json:"results"`
}

// TestResult is one recorded check with its observed outcome.
type TestResult struct {
	TestName        string                 `json:"test_name"`
	Category        string                 `json:"category"`
	Description     string                 `json:"description"`
	Passed          bool                   `json:"passed"`
	ExpectedOutcome string                 `json:"expected_outcome"`
	ActualOutcome   string                 `json:"actual_outcome"`
	Details         map[string]interface{} `json:"details,omitempty"`
	Duration        time.Duration          `json:"duration"`
	Error           string                 `json:"error,omitempty"`
}

// CategoryGroup groups results for the report template.
type CategoryGroup struct {
	Category string
	Tests    []TestResult
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Name}}</title>
<style>
body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #f4f7f5;
    margin: 0;
    color: #1f2d27;
}
.container { max-width: 1100px; margin: 0 auto; padding: 24px; }
header {
    border-bottom: 4px solid #2f855a;
    padding: 24px 0 16px;
    margin-bottom: 24px;
}
header h1 { margin: 0; font-size: 1.8em; }
header .meta { color: #5f6f67; margin-top: 6px; font-size: 0.95em; }
.summary { display: flex; gap: 16px; flex-wrap: wrap; margin-bottom: 24px; }
.stat {
    background: white;
    border: 1px solid #d8e2dc;
    border-radius: 6px;
    padding: 14px 22px;
    min-width: 120px;
}
.stat .label { font-size: 0.8em; color: #5f6f67; text-transform: uppercase; letter-spacing: 0.5px; }
.stat .value { font-size: 1.9em; font-weight: 700; margin-top: 4px; }
.stat.passed .value { color: #2f855a; }
.stat.failed .value { color: #c53030; }
.category { margin-bottom: 28px; }
.category h2 {
    font-size: 1.2em;
    border-bottom: 2px solid #c6d8ce;
    padding-bottom: 6px;
}
.case {
    background: white;
    border: 1px solid #d8e2dc;
    border-left: 4px solid #2f855a;
    border-radius: 4px;
    padding: 14px 18px;
    margin-bottom: 12px;
}
.case.failed { border-left-color: #c53030; background: #fff7f7; }
.case .head { display: flex; justify-content: space-between; align-items: baseline; }
.case .name { font-weight: 600; }
.case .verdict { font-size: 0.85em; font-weight: 700; }
.case.failed .verdict { color: #c53030; }
.case .verdict { color: #2f855a; }
.case .desc { color: #5f6f67; font-size: 0.92em; margin: 6px 0 10px; }
.outcomes { display: grid; grid-template-columns: 1fr 1fr; gap: 10px; font-size: 0.9em; }
.outcomes div { background: #f4f7f5; padding: 8px 10px; border-radius: 4px; }
.outcomes b { display: block; font-size: 0.8em; color: #5f6f67; text-transform: uppercase; }
details { margin-top: 10px; font-size: 0.88em; }
details summary { cursor: pointer; color: #2f855a; font-weight: 600; }
details table { border-collapse: collapse; margin-top: 8px; }
details td { padding: 3px 12px 3px 0; vertical-align: top; }
details td.key { color: #5f6f67; white-space: nowrap; }
.error { background: #fde8e8; color: #9b2c2c; padding: 10px; border-radius: 4px; margin-top: 10px; font-family: monospace; font-size: 0.85em; }
.duration { color: #8da399; font-size: 0.8em; margin-left: 8px; }
footer { color: #8da399; font-size: 0.85em; padding: 20px 0; border-top: 1px solid #d8e2dc; }
</style>
</head>
<body>
<div class="container">
<header>
    <h1>{{.Name}}</h1>
    <div class="meta">
        Generated {{.EndTime.Format "2006-01-02 15:04:05 MST"}} ·
        wall time {{.EndTime.Sub .StartTime | FormatDuration}} ·
        pass rate {{PassRate .PassedTests .TotalTests}}%
    </div>
</header>

<div class="summary">
    <div class="stat"><div class="label">Checks</div><div class="value">{{.TotalTests}}</div></div>
    <div class="stat passed"><div class="label">Passed</div><div class="value">{{.PassedTests}}</div></div>
    <div class="stat failed"><div class="label">Failed</div><div class="value">{{.FailedTests}}</div></div>
</div>

{{range GroupByCategory .Results}}
<div class="category">
    <h2>{{.Category}}</h2>
    {{range .Tests}}
    <div class="case {{if not .Passed}}failed{{end}}">
        <div class="head">
            <span class="name">{{.TestName}}</span>
            <span>
                <span class="verdict">{{if .Passed}}PASS{{else}}FAIL{{end}}</span>
                <span class="duration">{{FormatDuration .Duration}}</span>
            </span>
        </div>
        <div class="desc">{{.Description}}</div>
        <div class="outcomes">
            <div><b>Expected</b>{{.ExpectedOutcome}}</div>
            <div><b>Observed</b>{{.ActualOutcome}}</div>
        </div>
        {{if .Details}}
        <details>
            <summary>Details</summary>
            <table>
            {{range $key, $value := .Details}}
                <tr><td class="key">{{$key}}</td><td>{{printf "%v" $value}}</td></tr>
            {{end}}
            </table>
        </details>
        {{end}}
        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    </div>
    {{end}}
</div>
{{end}}

<footer>
    Full pipeline harness: feed ingestion, source health, deduplication,
    categorization, and the read API, run against in-memory stores and
    local fixture feeds.
</footer>
</div>
</body>
</html>
`

// GenerateHTMLReport renders the suite to a standalone HTML file.
func GenerateHTMLReport(suite *TestSuite, filename string) error {
	funcMap := template.FuncMap{
		"FormatDuration": func(d time.Duration) string {
			switch {
			case d < time.Millisecond:
				return fmt.Sprintf("%dµs", d.Microseconds())
			case d < time.Second:
				return fmt.Sprintf("%dms", d.Milliseconds())
			default:
				return fmt.Sprintf("%.2fs", d.Seconds())
			}
		},
		"PassRate": func(passed, total int) int {
			if total == 0 {
				return 0
			}
			return passed * 100 / total
		},
		"GroupByCategory": func(results []TestResult) []CategoryGroup {
			order := []string{}
			grouped := make(map[string][]TestResult)
			for _, r := range results {
				if _, seen := grouped[r.Category]; !seen {
					order = append(order, r.Category)
				}
				grouped[r.Category] = append(grouped[r.Category], r)
			}
			groups := make([]CategoryGroup, 0, len(order))
			for _, category := range order {
				groups = append(groups, CategoryGroup{Category: category, Tests: grouped[category]})
			}
			return groups
		},
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, suite); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
