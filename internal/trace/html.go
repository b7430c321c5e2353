package trace

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/prefetchctl/prefetchctl/internal/metrics"
	"github.com/prefetchctl/prefetchctl/internal/units"
)

// htmlSink buffers every row in memory and renders a single report on
// Close, the same deferred-render shape as the teacher's writeHTML.
type htmlSink struct {
	path string
	rows []Row
	acc  *metrics.Accumulator
}

// NewHTMLSink creates a sink that renders path once Close is called. acc
// supplies the run-level averages shown in the report summary.
func NewHTMLSink(path string, acc *metrics.Accumulator) Sink {
	return &htmlSink{path: path, acc: acc}
}

func (s *htmlSink) WriteRow(r Row) error {
	s.rows = append(s.rows, r)
	return nil
}

func (s *htmlSink) Close() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("trace: create %s: %w", s.path, err)
	}
	defer f.Close()

	avg := s.acc.Averages()
	peak := units.MBs(s.acc.PeakBandwidthMBs())
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, htmlView{Rows: s.rows, Avg: avg, PeakBandwidth: peak.Humanized()}); err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	return err
}

type htmlView struct {
	Rows          []Row
	Avg           metrics.Averages
	PeakBandwidth string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Prefetcher Controller Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
</style>

<h1>Prefetcher Controller Report</h1>

<p class="small">
Ticks: {{.Avg.Ticks}} &nbsp;|&nbsp;
Mean IPC: {{printf "%.4f" .Avg.MeanIPC}} &nbsp;|&nbsp;
Mean bandwidth: {{printf "%.1f" .Avg.MeanBandwidth}} MB/s &nbsp;|&nbsp;
Peak bandwidth: {{.PeakBandwidth}} &nbsp;|&nbsp;
Mean reward: {{printf "%.4f" .Avg.MeanReward}}
</p>

<h2>Per-tick</h2>
<table>
<thead>
<tr>
<th>time</th><th>tick</th><th>bandwidth (MB/s)</th><th>ipc_mean</th>
<th>ladder level</th><th>arm index</th><th>reward</th><th>msr</th><th>write?</th>
</tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td style="text-align:left">{{.At.Format "2006-01-02 15:04:05"}}</td>
<td>{{.TickIndex}}</td>
<td>{{if .BandwidthKnown}}{{.BandwidthMBs}}{{else}}?{{end}}</td>
<td>{{printf "%.4f" .IPCMean}}</td>
<td>{{.LadderLevel}}</td>
<td>{{.ArmIndex}}</td>
<td>{{printf "%.4f" .Reward}}</td>
<td>{{printf "%#x" .MSRValue}}</td>
<td>{{.MSRWriteOccurred}}</td>
</tr>
{{end}}
</tbody>
</table>
</html>`))
