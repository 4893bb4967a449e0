package web

import "html/template"

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>mailsift</title>
<style>
  body { font-family: sans-serif; margin: 2rem auto; max-width: 52rem; color: #222; }
  h1 { font-size: 1.4rem; }
  .cards { display: flex; gap: 1rem; flex-wrap: wrap; margin: 1rem 0; }
  .card { border: 1px solid #ddd; border-radius: 6px; padding: 0.8rem 1.2rem; min-width: 8rem; }
  .card .num { font-size: 1.6rem; font-weight: bold; }
  .card .label { color: #666; font-size: 0.8rem; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #eee; }
  th { color: #666; font-size: 0.8rem; text-transform: uppercase; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .meta { color: #666; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>mailsift</h1>
<p class="meta">Last run: {{.LastRun}}{{if .LastRunID}} ({{.LastRunID}}){{end}}</p>
<div class="cards">
  <div class="card"><div class="num">{{.UniqueSenders}}</div><div class="label">senders</div></div>
  <div class="card"><div class="num">{{.TotalMessages}}</div><div class="label">messages</div></div>
  <div class="card"><div class="num">{{.TotalAds}}</div><div class="label">advertisements</div></div>
  <div class="card"><div class="num">{{.AdRatePercent}}%</div><div class="label">ad rate</div></div>
</div>
<h2>Top senders</h2>
<table>
  <tr><th>Address</th><th>Last contact</th><th>Messages</th><th>Ads</th><th>Unsubscribe</th></tr>
  {{range .TopSenders}}
  <tr>
    <td>{{.Address}}</td>
    <td>{{.LastContact}}</td>
    <td class="num">{{.MessageCount}}</td>
    <td class="num">{{.AdCount}}</td>
    <td>{{if .UnsubscribeURL}}<a href="{{.UnsubscribeURL}}" rel="nofollow noopener">link</a>{{end}}</td>
  </tr>
  {{else}}
  <tr><td colspan="5">No senders recorded yet.</td></tr>
  {{end}}
</table>
</body>
</html>
`))
