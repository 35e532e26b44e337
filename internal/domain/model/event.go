package model

// InvocationEvent carries direct credentials for the event credential source.
// It is ignored when credentials come from the environment.
type InvocationEvent struct {
	JDBCURL  string `json:"jdbc_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}
