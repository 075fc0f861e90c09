package media

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
)

// Fragment templates for the two media treatments plus the empty state.
// Videos render muted, looping and inline so mobile browsers autoplay
// them, with a tap-for-sound overlay that flips the muted flag.
var (
	imgTmpl = template.Must(template.New("img").Parse(
		`<img src="{{.Source}}" alt="{{.Alt}}" class="{{.Class}}" loading="lazy">`))

	videoTmpl = template.Must(template.New("video").Parse(
		`<div class="media-video-frame">` +
			`<video src="{{.Source}}" class="{{.Class}}" autoplay muted loop playsinline></video>` +
			`<button type="button" class="media-sound-toggle" aria-label="Toggle sound" ` +
			`onclick="var v=this.previousElementSibling;v.muted=!v.muted;if(!v.muted){v.play().catch(function(){});}">` +
			`&#128266;</button>` +
			`</div>`))

	noneTmpl = template.Must(template.New("none").Parse(
		`<div class="media-placeholder {{.Class}}">No Media</div>`))
)

type fragmentData struct {
	Source string
	Alt    string
	Class  string
}

// RenderHTML resolves an asset slot and returns the ready-to-embed
// fragment for it. Template execution failures degrade to the empty
// state; page rendering never fails because of one slot.
func (r *Resolver) RenderHTML(ctx context.Context, assetKey, fallbackSrc, alt, class string) template.HTML {
	res := r.Resolve(ctx, assetKey, fallbackSrc)
	return FragmentHTML(ctx, res, alt, class)
}

// FragmentHTML renders an already-computed resolution.
func FragmentHTML(ctx context.Context, res Resolution, alt, class string) template.HTML {
	data := fragmentData{Source: res.Source, Alt: alt, Class: class}
	var t *template.Template
	switch {
	case res.Origin == OriginNone:
		t = noneTmpl
	case res.Kind == KindVideo:
		t = videoTmpl
	default:
		t = imgTmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.WarnContext(ctx, "media fragment render failed", "err", err)
		buf.Reset()
		_ = noneTmpl.Execute(&buf, data)
	}
	return template.HTML(buf.String())
}
