package webui

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

// dumpConfig limits spew to the shape of the data; it is a debugging aid,
// not a serializer.
var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                6,
}

func writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   dumpConfig.Sdump(data),
	})
	if err != nil {
		logging.LogError(slog.Default(), "failed to execute debug template", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugTables maps a dataType to its title and loader.
func (webUI *WebUI) debugTables(ctx context.Context, dataType string) (string, any, error) {
	gw := webUI.Gateway
	switch dataType {
	case "cities":
		rows, err := gw.Cities.List(ctx, gateway.Query{})
		return "Cities", rows, err
	case "bus_lines":
		rows, err := gw.BusLines.List(ctx, gateway.Query{})
		return "Bus lines", rows, err
	case "agencies":
		rows, err := gw.Agencies.List(ctx, gateway.Query{})
		return "Transport agencies", rows, err
	case "routes":
		rows, err := gw.Routes.List(ctx, gateway.Query{}.EmbedAgency())
		return "Intercity routes", rows, err
	case "counts":
		if webUI.Backend == nil || webUI.Backend.Local == nil {
			return "Row counts", map[string]string{"error": "row counts are only available with the local backend"}, nil
		}
		counts, err := webUI.Backend.Local.TableCounts(ctx)
		return "Row counts", counts, err
	default:
		return "Choose a data type", map[string]string{
			"error": "Please use one of the following: cities, bus_lines, agencies, routes, counts.",
		}, nil
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	title, data, err := webUI.debugTables(r.Context(), r.URL.Query().Get("dataType"))
	if err != nil {
		logging.LogError(webUI.Logger, "failed to load debug data", err,
			slog.String("data_type", r.URL.Query().Get("dataType")))
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeDebugData(w, title, data)
}
