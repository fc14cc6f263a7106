package server

import (
	"errors"
	"net/http"
	"net/url"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

// handleDashboard refreshes the checklist and renders it.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.reconciler.Reconcile(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.DB.ListStatusEntries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	canChange := s.Policy.HasPermission(userFrom(r), "change", "welcome_wizard.statusentry")

	path := mustRoute("plugins:welcome_wizard:dashboard")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	PageLayout("Dashboard", path, userFrom(r), popFlash(w, r), s.dashboardContent(entries, canChange)).Render(w)
}

func (s *Server) dashboardContent(entries []storage.StatusEntry, canChange bool) g.Node {
	rows := make([]g.Node, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, s.dashboardRow(e, canChange))
	}
	return Section(
		H1(Class("text-2xl font-bold text-white mb-6"), g.Text("Welcome Wizard")),
		P(Class("text-slate-400 mb-6"), g.Text("Foundational inventory data to populate before adding devices.")),
		Table(ID("status-table"), Class("w-full text-sm"),
			THead(Tr(
				Th(Class("text-left p-2"), g.Text("Name")),
				Th(Class("text-left p-2"), g.Text("Completed")),
				Th(Class("text-left p-2"), g.Text("Ignored")),
				Th(Class("text-left p-2"), g.Text("Links")),
				g.If(canChange, Th(Class("p-2"))),
			)),
			TBody(g.Group(rows)),
		),
	)
}

func (s *Server) dashboardRow(e storage.StatusEntry, canChange bool) g.Node {
	links := []g.Node{}
	addLink := func(route, label string) {
		if route == "" {
			return
		}
		if href, ok := s.resolveRoute(route); ok {
			links = append(links, A(Href(href), Class("mr-3 text-cyan-400 hover:underline"), g.Text(label)))
		}
	}
	addLink(e.ListLink, "List")
	addLink(e.AddLink, "Add")
	addLink(e.WizardLink, "Import Wizard")

	toggleLabel, toggleValue := "Ignore", "true"
	if e.Ignored {
		toggleLabel, toggleValue = "Unignore", "false"
	}

	return Tr(Class("border-t border-slate-800"), g.Attr("data-name", e.Name),
		Td(Class("p-2 font-medium"), g.Text(e.Name)),
		Td(Class("p-2"), statusBadge(e.Completed)),
		Td(Class("p-2"), g.If(e.Ignored, Span(Class("text-slate-500"), g.Text("ignored")))),
		Td(Class("p-2"), g.Group(links)),
		g.If(canChange, Td(Class("p-2"),
			Form(Method("POST"), Action(mustRoute("plugins:welcome_wizard:dashboard")+url.PathEscape(e.Name)+"/ignore"),
				Input(Type("hidden"), Name("ignored"), Value(toggleValue)),
				Button(Type("submit"), Class("px-3 py-1 rounded bg-slate-700 hover:bg-slate-600"), g.Text(toggleLabel)),
			),
		)),
	)
}

func statusBadge(completed bool) g.Node {
	if completed {
		return Span(Class("badge completed px-2 py-0.5 rounded bg-green-900/40 text-green-400"), g.Text("Completed"))
	}
	return Span(Class("badge pending px-2 py-0.5 rounded bg-amber-900/40 text-amber-400"), g.Text("Pending"))
}

func (s *Server) handleToggleIgnored(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ignored := r.PostForm.Get("ignored") == "true"

	err := s.DB.SetStatusIgnored(r.Context(), name, ignored)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ignored {
		setFlash(w, name+" ignored.")
	} else {
		setFlash(w, name+" no longer ignored.")
	}
	http.Redirect(w, r, mustRoute("plugins:welcome_wizard:dashboard"), http.StatusSeeOther)
}
