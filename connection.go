package dao

import "fmt"

// Connection is a Relay style view of a page: edges with cursors, the bare
// nodes, and page metadata.
//
// Example GraphQL schema:
//
//	type UserConnection {
//	  edges: [UserEdge!]!
//	  nodes: [User!]!
//	  pageInfo: PageInfo!
//	}
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	Nodes    []T       `json:"nodes"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Edge is one node and the cursor that resumes after it.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// BuildConnection converts a page into a Connection, transforming each row
// and giving it an offset cursor. Passing an edge cursor back through
// PageRequestAfter continues right after that row.
//
// Example usage:
//
//	page, err := users.FindActive(ctx, dao.PageRequestAfter(args.After, *args.First))
//	if err != nil {
//	    return nil, err
//	}
//	return dao.BuildConnection(page, func(u User) (*graph.User, error) {
//	    return toGraphUser(u), nil
//	})
func BuildConnection[From any, To any](
	page *Pageable[From],
	transform func(From) (To, error),
) (*Connection[To], error) {
	conn := &Connection[To]{
		Nodes:    make([]To, 0, len(page.Data)),
		Edges:    make([]Edge[To], 0, len(page.Data)),
		PageInfo: NewPageInfo(page),
	}

	offset := page.Offset()
	for i, item := range page.Data {
		transformed, err := transform(item)
		if err != nil {
			return nil, fmt.Errorf("transform item at index %d: %w", i, err)
		}

		conn.Nodes = append(conn.Nodes, transformed)
		conn.Edges = append(conn.Edges, Edge[To]{
			Cursor: *EncodeOffsetCursor(offset + i + 1),
			Node:   transformed,
		})
	}

	return conn, nil
}
