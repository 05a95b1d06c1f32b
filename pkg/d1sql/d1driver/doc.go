// Package d1driver opens connections to Cloudflare D1 databases.
//
// Open returns a d1sql.Conn for hosts that speak the PDO-style contract
// directly. Importing the package also registers a database/sql driver
// named "d1":
//
//	db, err := sql.Open("d1", "d1://<account>:<token>@<database>?retries=3")
//
// Every statement is one HTTPS request. D1 keeps no session between requests,
// so database/sql transactions are refused unless the DSN selects tx=counter,
// which only tracks nesting depth and sends nothing.
package d1driver
