package admin

import (
	"html/template"

	"github.com/jmylchreest/zenimport/pkg/section"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>HTML to Zen Blocks Importer</title>
</head>
<body>
<h1>HTML to Zen Blocks Importer</h1>

{{if eq .Result "success"}}
<div class="notice notice-success"><p>Import completed successfully!{{if .PageID}} <a href="/pages/{{.Slug}}">View page {{.PageID}}</a>{{end}}</p></div>
{{else if eq .Result "error"}}
<div class="notice notice-error"><p>Import failed. Check error log for details.</p></div>
{{end}}

<form method="post" action="/import" enctype="multipart/form-data">
<table class="form-table">
<tr>
<th scope="row"><label for="page_slug">Page Slug</label></th>
<td>
<input type="text" id="page_slug" name="page_slug" placeholder="solutions" required>
<p class="description">Enter the page slug (without leading slash). Example: "solutions"</p>
</td>
</tr>
<tr>
<th scope="row"><label for="page_title">Page Title</label></th>
<td>
<input type="text" id="page_title" name="page_title" placeholder="Solutions" required>
<p class="description">The title for the new page</p>
</td>
</tr>
<tr>
<th scope="row"><label for="html_file">HTML File</label></th>
<td>
<input type="file" id="html_file" name="html_file" accept=".html,.htm" required>
<p class="description">Upload an HTML file containing sections to import (up to {{.MaxSize}})</p>
</td>
</tr>
<tr>
<th scope="row"><label for="page_status">Page Status</label></th>
<td>
<select id="page_status" name="page_status">
<option value="draft">Draft</option>
<option value="publish">Published</option>
</select>
<p class="description">Choose whether to publish the page immediately or save as draft</p>
</td>
</tr>
</table>

<h3>Available Zen Blocks</h3>
<ul id="available-blocks">
{{range .Blocks}}<li><strong>{{.Title}}</strong> <code>{{.Block}}</code>: {{.Description}}</li>
{{end}}</ul>

<button type="submit">Import HTML and Create Page</button>
</form>

<hr>

<h3>Instructions</h3>
<ol>
<li>Enter a unique page slug (the URL path for your page)</li>
<li>Upload an HTML file containing the sections you want to import</li>
<li>Sections are detected automatically and matched to the available Zen Blocks</li>
<li>A new page is created with the imported content as Zen Blocks</li>
</ol>

<footer><small>{{.Version}}</small></footer>
</body>
</html>
`))

type indexData struct {
	Result  string
	PageID  int64
	Slug    string
	MaxSize string
	Blocks  []section.Info
	Version string
}
