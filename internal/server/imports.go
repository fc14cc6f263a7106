package server

import (
	"errors"
	"fmt"
	"net/http"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/importer"
)

// handleImportConfirm shows the confirmation form for the selected pk values.
func (s *Server) handleImportConfirm(d *importer.Dispatcher) http.HandlerFunc {
	kind := d.Kind()
	base := mustRoute(kind.ReturnRoute)
	title, noun := kindTitle(kind)

	return func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["pk"]
		sel, err := d.PresentSelection(r.Context(), ids)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if sel.Redirect != "" {
			http.Redirect(w, r, mustRoute(sel.Redirect), http.StatusSeeOther)
			return
		}

		hidden := make([]g.Node, 0, len(sel.IDs))
		for _, id := range sel.IDs {
			hidden = append(hidden, Input(Type("hidden"), Name("pk"), Value(id)))
		}
		summary := fmt.Sprintf("Import %s", sel.Object.Name)
		if n := len(sel.IDs); n > 1 {
			summary = fmt.Sprintf("Import %s and %d other %s", sel.Object.Name, n-1, noun)
		}

		content := Section(
			H1(Class("text-2xl font-bold text-white mb-6"), g.Text("Confirm import")),
			P(ID("import-summary"), Class("mb-6"), g.Text(summary+"?")),
			Form(ID("import-form"), Method("POST"), Action(base+"import/"),
				g.Group(hidden),
				Button(Type("submit"), Name("_import"), Class("px-4 py-2 rounded bg-cyan-600 text-white"), g.Text("Import")),
				A(Href(base), Class("ml-4 text-slate-400 hover:underline"), g.Text("Cancel")),
			),
		)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		PageLayout(title, base, userFrom(r), popFlash(w, r), content).Render(w)
	}
}

// handleImportSubmit enqueues the imports and redirects back to the list.
// An invalid form redirects without a message.
func (s *Server) handleImportSubmit(d *importer.Dispatcher) http.HandlerFunc {
	back := mustRoute(d.Kind().ReturnRoute)

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		res, err := d.ExecuteImport(r.Context(), importer.Form{PKs: r.PostForm["pk"]}, userFrom(r))
		if errors.Is(err, importer.ErrValidation) {
			utils.Log.WithError(err).Debug("Rejected import form")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		utils.Log.WithField("user", userFrom(r)).WithField("count", res.Count).Infof("Queued %s jobs", d.Kind().JobName)
		setFlash(w, res.Message)
		http.Redirect(w, r, mustRoute(res.Redirect), http.StatusSeeOther)
	}
}
