package entities

// environmentsEntity names the deployment environments the service runs in.
type environmentsEntity struct {
	Development string
	Staging     string
	Production  string
}

// Environment holds the canonical environment names, compared against ENV.
var Environment = environmentsEntity{
	Development: "development",
	Staging:     "staging",
	Production:  "production",
}
