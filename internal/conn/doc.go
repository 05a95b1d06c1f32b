// Package conn implements d1sql.Conn and d1sql.Stmt on top of a d1.Connector.
//
// Every statement is executed client-side: bindings are normalized, flattened in
// the order they were bound and sent with the SQL text in one request. The whole
// result is buffered and served through a forward cursor.
//
// Neither Connection nor Statement is safe for concurrent use.
package conn
