// Package queryir is the query representation the entity table is read
// with.
//
// A query-many action carries an example record; FromExample turns it into
// a Select over one entity name whose filter requires every example field
// to be equal. Backends (internal/querysql) compile the tree; nothing
// outside this package can add Query or Predicate implementations, so
// backends can switch exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // only query shape
//	}
//
// Values are ir.Value scalars. Arrays and objects cannot be compared by
// the SQL backend and are rejected by Validate, as are field names that
// cannot be written as a JSON path label.
package queryir
