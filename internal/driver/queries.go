package driver

const (
	// SnapshotRecordsQuery returns the archived elements of one snapshot in capture order.
	// Elements either carry the original record as a JSON string in `payload` or store
	// its fields directly as node properties.
	SnapshotRecordsQuery = `
		MATCH (s:Snapshot {name: $name})-[:HAS_ELEMENT]->(e:Element)
		RETURN e.payload AS payload, properties(e) AS props
		ORDER BY e.seq ASC
	`

	SnapshotExistsQuery = `
		MATCH (s:Snapshot {name: $name})
		RETURN count(s) AS n
	`

	SaveSnapshotQuery = `
		MERGE (s:Snapshot {name: $name})
		SET s.source = $source,
			s.captured_at = $captured_at
		RETURN s.name AS name
	`

	SaveElementQuery = `
		MATCH (s:Snapshot {name: $name})
		CREATE (s)-[:HAS_ELEMENT]->(e:Element {snapshot: $name, seq: $seq, payload: $payload})
		RETURN e.seq AS seq
	`

	DeleteSnapshotQuery = `
		MATCH (s:Snapshot {name: $name})
		OPTIONAL MATCH (s)-[:HAS_ELEMENT]->(e:Element)
		DETACH DELETE e, s
	`
)

// elementBookkeeping lists the properties written by SaveElementQuery, stripped from props rows.
var elementBookkeeping = []string{"snapshot", "seq", "payload"}
