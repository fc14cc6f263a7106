package server

import (
	"fmt"
	"net/url"
	"strconv"

	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// PageLayout wraps content in the shared page chrome.
func PageLayout(title, currentPath, user, flash string, content g.Node) g.Node {
	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(
			Head(
				Meta(Charset("UTF-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(title+" - Welcome Wizard")),
				Script(Src("https://cdn.tailwindcss.com")),
				Script(Src("https://unpkg.com/htmx.org@2.0.4")),
			),
			Body(Class("bg-slate-950 text-slate-200 min-h-screen"),
				Navbar(currentPath, user),
				Main(Class("container mx-auto mt-8 mb-16 px-4"),
					g.If(flash != "", flashBanner(flash)),
					content,
				),
			),
		),
	})
}

func Navbar(currentPath, user string) g.Node {
	navLink := func(href, label string) g.Node {
		base := "inline-block px-3 py-2 rounded-md text-sm font-medium "
		if currentPath == href {
			base += "text-cyan-400 bg-cyan-400/10"
		} else {
			base += "text-slate-400 hover:text-white hover:bg-slate-800/50"
		}
		return A(Href(href), Class(base), g.Text(label))
	}

	return Nav(Class("bg-slate-900/80 p-4 border-b border-slate-700/50"),
		Div(Class("container mx-auto flex justify-between items-center"),
			A(Href(mustRoute("plugins:welcome_wizard:dashboard")), Class("text-xl font-bold"), g.Text("Welcome Wizard")),
			Div(Class("flex items-center space-x-1"),
				navLink(mustRoute("plugins:welcome_wizard:dashboard"), "Dashboard"),
				navLink(mustRoute("plugins:welcome_wizard:manufacturers"), "Manufacturers"),
				navLink(mustRoute("plugins:welcome_wizard:devicetypes"), "Device Types"),
				g.If(user != "", Span(Class("ml-4 text-xs text-slate-500"), g.Text(user))),
			),
		),
	)
}

func flashBanner(msg string) g.Node {
	return Div(ID("flash"), Class("bg-cyan-900/20 border border-cyan-800/50 text-cyan-300 px-4 py-3 rounded-lg mb-6"),
		g.Text(msg),
	)
}

func errorBanner(msg string) g.Node {
	return Div(Class("bg-red-900/20 border border-red-800/50 text-red-400 px-4 py-3 rounded-lg mb-6"),
		Strong(g.Text("Error: ")),
		g.Text(msg),
	)
}

// pageHref builds a list URL keeping the current filters.
func pageHref(base string, page, perPage int, search, manufacturer string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if search != "" {
		q.Set("q", search)
	}
	if manufacturer != "" {
		q.Set("manufacturer", manufacturer)
	}
	return base + "?" + q.Encode()
}

// pagination renders previous/next and a window of page links with htmx swaps into target.
func pagination(base, target string, currentPage, totalPages, perPage int, search, manufacturer string) g.Node {
	if totalPages <= 1 {
		return g.Group(nil)
	}
	link := func(page int, text string, active bool) g.Node {
		href := pageHref(base, page, perPage, search, manufacturer)
		classes := "px-3 py-1.5 text-sm font-medium rounded-full"
		if active {
			classes += " bg-cyan-600 text-white"
		} else {
			classes += " bg-slate-800/50 text-slate-400 hover:bg-slate-700"
		}
		return A(
			Href(href),
			g.Attr("hx-get", href),
			g.Attr("hx-target", target),
			g.Attr("hx-push-url", "true"),
			Class(classes),
			g.Text(text),
		)
	}
	disabled := func(text string) g.Node {
		return Span(Class("px-3 py-1.5 text-sm rounded-full bg-slate-800/50 text-slate-600 cursor-not-allowed"), g.Text(text))
	}

	var items []g.Node
	if currentPage <= 1 {
		items = append(items, disabled("Previous"))
	} else {
		items = append(items, link(currentPage-1, "Previous", false))
	}

	start := max(1, currentPage-2)
	end := min(totalPages, currentPage+2)
	if start > 1 {
		items = append(items, link(1, "1", false))
		if start > 2 {
			items = append(items, Span(Class("px-2 text-slate-600"), g.Text("...")))
		}
	}
	for i := start; i <= end; i++ {
		items = append(items, link(i, strconv.Itoa(i), i == currentPage))
	}
	if end < totalPages {
		if end < totalPages-1 {
			items = append(items, Span(Class("px-2 text-slate-600"), g.Text("...")))
		}
		items = append(items, link(totalPages, strconv.Itoa(totalPages), false))
	}

	if currentPage >= totalPages {
		items = append(items, disabled("Next"))
	} else {
		items = append(items, link(currentPage+1, "Next", false))
	}

	return Div(Class("mt-6 flex justify-center"),
		Nav(Class("pagination inline-flex items-center gap-1"), g.Group(items)),
	)
}

func resultsSummary(total, page, perPage int, noun string) string {
	if total == 0 {
		return fmt.Sprintf("No %s to display.", noun)
	}
	return fmt.Sprintf("Showing %d to %d of %d %s.",
		min((page-1)*perPage+1, total),
		min(page*perPage, total),
		total, noun)
}
