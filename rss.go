package havewecrashedyet

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// renderFeed writes an RSS feed with one item per market status change.
// Subscribers get "BLEEDING" in their reader the moment the verdict flips,
// without polling the page.
func (a *App) renderFeed(c echo.Context, changes []Snapshot) error {
	base := a.Config.SiteURL
	items := make([]rssItem, 0, len(changes))
	for _, snap := range changes {
		items = append(items, rssItem{
			Title:       fmt.Sprintf("%s — %s %s today", snap.StatusText, snap.Symbol, FormatChangePercent(snap)),
			Link:        BuildURL(base),
			Description: snap.Subtitle,
			PubDate:     snap.CreatedAt.Format(time.RFC1123Z),
			GUID:        fmt.Sprintf("%s#change-%d", BuildURL(base), snap.ID),
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.SiteName,
			Link:        base,
			Description: "Market status changes, as they happen.",
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
