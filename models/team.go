package models

// Team represents an NFL team
type Team struct {
	Abbr string `json:"abbr"`
	City string `json:"city"`
	Name string `json:"name"`
}

// String returns a string representation of the team
func (t Team) String() string {
	return t.City + " " + t.Name
}

// NFLTeams lists the 32 franchises by the codes the schedule feed uses
var NFLTeams = []Team{
	{"ARI", "Arizona", "Cardinals"}, {"ATL", "Atlanta", "Falcons"},
	{"BAL", "Baltimore", "Ravens"}, {"BUF", "Buffalo", "Bills"},
	{"CAR", "Carolina", "Panthers"}, {"CHI", "Chicago", "Bears"},
	{"CIN", "Cincinnati", "Bengals"}, {"CLE", "Cleveland", "Browns"},
	{"DAL", "Dallas", "Cowboys"}, {"DEN", "Denver", "Broncos"},
	{"DET", "Detroit", "Lions"}, {"GB", "Green Bay", "Packers"},
	{"HOU", "Houston", "Texans"}, {"IND", "Indianapolis", "Colts"},
	{"JAX", "Jacksonville", "Jaguars"}, {"KC", "Kansas City", "Chiefs"},
	{"LAC", "Los Angeles", "Chargers"}, {"LAR", "Los Angeles", "Rams"},
	{"LV", "Las Vegas", "Raiders"}, {"MIA", "Miami", "Dolphins"},
	{"MIN", "Minnesota", "Vikings"}, {"NE", "New England", "Patriots"},
	{"NO", "New Orleans", "Saints"}, {"NYG", "New York", "Giants"},
	{"NYJ", "New York", "Jets"}, {"PHI", "Philadelphia", "Eagles"},
	{"PIT", "Pittsburgh", "Steelers"}, {"SEA", "Seattle", "Seahawks"},
	{"SF", "San Francisco", "49ers"}, {"TB", "Tampa Bay", "Buccaneers"},
	{"TEN", "Tennessee", "Titans"}, {"WAS", "Washington", "Commanders"},
}

// LookupTeam returns the team for a code
func LookupTeam(abbr string) (Team, bool) {
	for _, t := range NFLTeams {
		if t.Abbr == abbr {
			return t, true
		}
	}
	return Team{}, false
}
