package server

import (
	"net/http"
	"strconv"
	"strings"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/importer"
	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

var allowedPerPages = []int{25, 50, 100, 250, 500}

const tableTarget = "#import-table-container"

type listView struct {
	kind          importer.Kind
	base          string
	title         string
	noun          string
	result        *storage.ImportListResult
	loadErr       error
	search        string
	manufacturer  string
	manufacturers []string
	syncQueued    bool
}

func kindTitle(k importer.Kind) (title, noun string) {
	if k.StorageKind() == storage.KindDeviceType {
		return "Device Type Imports", "device types"
	}
	return "Manufacturer Imports", "manufacturers"
}

// handleList renders the candidate list of one wizard. An empty list may
// trigger a library pull.
func (s *Server) handleList(d *importer.Dispatcher) http.HandlerFunc {
	kind := d.Kind()
	base := mustRoute(kind.ReturnRoute)
	title, noun := kindTitle(kind)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		v := listView{
			kind:   kind,
			base:   base,
			title:  title,
			noun:   noun,
			search: strings.TrimSpace(query.Get("q")),
		}
		if kind.StorageKind() == storage.KindDeviceType {
			v.manufacturer = strings.TrimSpace(query.Get("manufacturer"))
		}

		page := 1
		if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
			page = p
		}
		perPage := allowedPerPages[0]
		if p, err := strconv.Atoi(query.Get("per_page")); err == nil {
			for _, allowed := range allowedPerPages {
				if p == allowed {
					perPage = p
					break
				}
			}
		}

		total, err := s.DB.CountImports(ctx, kind.StorageKind())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if s.trigger != nil {
			v.syncQueued, err = s.trigger.CheckSync(ctx, s.cfg.EnableLibrarySync, total == 0, userFrom(r))
			if err != nil {
				s.fail(w, r, err)
				return
			}
		}

		v.result, v.loadErr = s.DB.ListImports(ctx, kind.StorageKind(), storage.ListOptions{
			Search:       v.search,
			Manufacturer: v.manufacturer,
			Page:         page,
			PerPage:      perPage,
		})
		if v.loadErr != nil {
			utils.Log.WithError(v.loadErr).Error("Error listing import candidates")
			v.result = &storage.ImportListResult{Page: page, PerPage: perPage, TotalPages: 1}
		}
		if kind.StorageKind() == storage.KindDeviceType {
			if v.manufacturers, err = s.DB.ListImportManufacturers(ctx); err != nil {
				utils.Log.WithError(err).Warn("Could not list manufacturers for the filter")
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Header.Get("HX-Request") == "true" {
			v.table().Render(w)
			return
		}
		PageLayout(title, base, userFrom(r), popFlash(w, r), v.content()).Render(w)
	}
}

func (v listView) content() g.Node {
	nodes := []g.Node{
		H1(Class("text-2xl font-bold text-white mb-6"), g.Text(v.title)),
	}
	if v.syncQueued {
		nodes = append(nodes, flashBanner("No import candidates yet. A device-type library sync has been queued, reload in a moment."))
	}
	if v.loadErr != nil {
		nodes = append(nodes, errorBanner("Could not load import candidates. "+v.loadErr.Error()))
	}
	nodes = append(nodes,
		v.filterBar(),
		Div(ID(strings.TrimPrefix(tableTarget, "#")), v.table()),
	)
	return Section(g.Group(nodes))
}

func (v listView) filterBar() g.Node {
	var mfrSelect g.Node = g.Group(nil)
	if v.kind.StorageKind() == storage.KindDeviceType {
		opts := []g.Node{Option(Value(""), g.Text("All manufacturers"))}
		for _, m := range v.manufacturers {
			if m == v.manufacturer {
				opts = append(opts, Option(Value(m), Selected(), g.Text(m)))
			} else {
				opts = append(opts, Option(Value(m), g.Text(m)))
			}
		}
		mfrSelect = Select(Name("manufacturer"), Class("px-2 py-2 rounded bg-slate-800 text-slate-200"), g.Group(opts))
	}

	return Form(Method("GET"), Action(v.base), Class("flex gap-2 mb-6"),
		g.Attr("hx-get", v.base),
		g.Attr("hx-target", tableTarget),
		g.Attr("hx-push-url", "true"),
		Input(Type("text"), Name("q"), Value(v.search), Placeholder("Search..."),
			Class("flex-1 px-3 py-2 rounded bg-slate-800 text-slate-200")),
		mfrSelect,
		Input(Type("hidden"), Name("per_page"), Value(strconv.Itoa(v.result.PerPage))),
		Button(Type("submit"), Class("px-4 py-2 rounded bg-cyan-600 text-white"), g.Text("Search")),
	)
}

// table is the part swapped by htmx: summary, rows and pagination.
func (v listView) table() g.Node {
	res := v.result
	isDeviceType := v.kind.StorageKind() == storage.KindDeviceType

	headers := []g.Node{Th(Class("p-2 w-8")), Th(Class("text-left p-2"), g.Text("Name"))}
	if isDeviceType {
		headers = append(headers,
			Th(Class("text-left p-2"), g.Text("Manufacturer")),
			Th(Class("text-left p-2"), g.Text("Filename")),
		)
	}

	rows := make([]g.Node, 0, len(res.Items))
	for _, c := range res.Items {
		cells := []g.Node{
			Td(Class("p-2"), Input(Type("checkbox"), Name("pk"), Value(c.ID))),
			Td(Class("p-2"), A(Href(v.base+c.ID+"/"), Class("text-cyan-400 hover:underline"), g.Text(c.Name))),
		}
		if isDeviceType {
			cells = append(cells,
				Td(Class("p-2"), g.Text(c.Manufacturer)),
				Td(Class("p-2"), Code(Class("text-xs text-slate-400"), g.Text(c.Filename))),
			)
		}
		rows = append(rows, Tr(Class("border-t border-slate-800"), g.Group(cells)))
	}
	if len(rows) == 0 {
		rows = append(rows, Tr(Td(ColSpan(strconv.Itoa(len(headers))), Class("p-4 text-center text-slate-500"), g.Text("No results."))))
	}

	return g.Group([]g.Node{
		Div(Class("summary text-sm text-slate-400 mb-4"), g.Text(resultsSummary(res.TotalCount, res.Page, res.PerPage, v.noun))),
		Form(Method("GET"), Action(v.base+"import/"),
			Table(ID("import-table"), Class("w-full text-sm"),
				THead(Tr(g.Group(headers))),
				TBody(g.Group(rows)),
			),
			g.If(len(res.Items) > 0,
				Button(Type("submit"), Class("mt-4 px-4 py-2 rounded bg-cyan-600 text-white"), g.Text("Import Selected")),
			),
		),
		pagination(v.base, tableTarget, res.Page, res.TotalPages, res.PerPage, v.search, v.manufacturer),
	})
}

// handleDetail shows one import candidate.
func (s *Server) handleDetail(d *importer.Dispatcher) http.HandlerFunc {
	kind := d.Kind()
	base := mustRoute(kind.ReturnRoute)
	title, _ := kindTitle(kind)

	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.DB.GetImport(r.Context(), kind.StorageKind(), r.PathValue("id"))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		row := func(label string, value g.Node) g.Node {
			return Tr(Class("border-t border-slate-800"),
				Th(Class("text-left p-2 text-slate-400 w-48"), g.Text(label)),
				Td(Class("p-2"), value),
			)
		}
		rows := []g.Node{
			row("Name", g.Text(c.Name)),
			row("Repository", g.Text(c.Repository)),
		}
		if kind.StorageKind() == storage.KindDeviceType {
			rows = append(rows,
				row("Manufacturer", g.Text(c.Manufacturer)),
				row("Filename", Code(g.Text(c.Filename))),
			)
		}

		content := Section(
			H1(Class("text-2xl font-bold text-white mb-6"), g.Text(c.Name)),
			Table(ID("detail-table"), Class("w-full text-sm mb-6"), TBody(g.Group(rows))),
			A(Href(base+"import/?pk="+c.ID), Class("px-4 py-2 rounded bg-cyan-600 text-white"), g.Text("Import")),
			A(Href(base), Class("ml-4 text-slate-400 hover:underline"), g.Text("Back to list")),
		)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		PageLayout(title, base, userFrom(r), popFlash(w, r), content).Render(w)
	}
}
