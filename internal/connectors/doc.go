// Package connectors holds the item sources behind Quarry's bundled tool
// workers. Each source knows how to list recent items from one kind of
// system and how to find items matching a query. Tools turns a source into
// the fetch_items and live_items tools a worker serves over stdio.
package connectors
