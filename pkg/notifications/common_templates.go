package notifications

var commonTemplates = map[string]string{
	`default`: `
{{- with .Report -}}
  {{len .Scanned}} Scanned, {{len .Updated}} Updated, {{len .Fresh}} Fresh, {{len .Stale}} Stale, {{len .Failed}} Failed
  {{- range .Updated}}
- {{.Name}} ({{.ImageRepository}}): {{with .Previous}}{{.}}{{else}}unset{{end}} updated to {{.Version}} in {{.Commit}}
  {{- end -}}
  {{- range .Stale}}
- {{.Name}} ({{.ImageRepository}}): {{.Version}} available, not pushed
  {{- end -}}
  {{- range .Failed}}
- {{.Name}} ({{.ImageRepository}}): {{.State}} at {{.Stage}}: {{.Error}}
  {{- end -}}
{{- end -}}`,

	`porcelain.v1.summary`: `
{{- if .Report -}}
  {{- range .Report.All }}
    {{- .Name}} ({{.ImageRepository}}): {{.State -}}
    {{- with .Version}} {{.}}{{end}}
    {{- with .Error}} Error: {{.}}{{end}}{{ println }}
  {{- else -}}
    no entries configured
  {{- end -}}
{{- end -}}`,

	`json.v1`: `{{ . | ToJSON }}`,
}
