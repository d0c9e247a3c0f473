package redlion

import (
	"path"
	"regexp"
	"strings"
)

// csvExt is matched case-sensitively, as the stations write it
const csvExt = ".CSV"

var yearPattern = regexp.MustCompile(`/(\d{2})\d{6}\.CSV`)

// BuildLink turns an index href into an absolute file link. Station hrefs are
// Windows paths ("\LOGS\GASLOG\23101900.CSV"); only the file name is kept and
// joined onto base.
func BuildLink(base, href string) string {
	name := href
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimRight(base, "/") + "/" + name
}

// GroupLinksByYear groups links by the 20YY year in their YYMMDDNN file name.
// Links that do not carry a date are dropped; order within a year is kept.
func GroupLinksByYear(links []string) map[string][]string {
	byYear := make(map[string][]string)
	for _, link := range links {
		m := yearPattern.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		year := "20" + m[1]
		byYear[year] = append(byYear[year], link)
	}
	return byYear
}

// WeekLabel returns the file name stem of a link, e.g. "23101900"
func WeekLabel(link string) string {
	base := path.Base(link)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// CSVName returns the YYMMDD file name for a weekly link, e.g. "231019.csv".
// The stations append a two digit sequence to the date.
func CSVName(link string) string {
	label := WeekLabel(link)
	if len(label) > 2 {
		label = label[:len(label)-2]
	}
	return label + ".csv"
}
