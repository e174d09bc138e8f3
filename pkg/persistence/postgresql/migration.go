package postgresql

// migrations returns the versioned schema for campaign flow storage.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS campaign_flows (
				campaign_id TEXT PRIMARY KEY,
				created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS flow_nodes (
				id          TEXT PRIMARY KEY,
				campaign_id TEXT NOT NULL REFERENCES campaign_flows(campaign_id) ON DELETE CASCADE,
				kind        TEXT NOT NULL,
				label       TEXT NOT NULL DEFAULT '',
				subtitle    TEXT NOT NULL DEFAULT '',
				content     TEXT NOT NULL DEFAULT '',
				position_x  DOUBLE PRECISION,
				position_y  DOUBLE PRECISION,
				wait_time   INTEGER NOT NULL DEFAULT 0,
				duration    INTEGER NOT NULL DEFAULT 0,
				sort_order  INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX IF NOT EXISTS flow_nodes_campaign_idx ON flow_nodes(campaign_id);

			CREATE TABLE IF NOT EXISTS flow_edges (
				id          TEXT NOT NULL,
				campaign_id TEXT NOT NULL REFERENCES campaign_flows(campaign_id) ON DELETE CASCADE,
				source_id   TEXT NOT NULL,
				target_id   TEXT NOT NULL,
				branch      TEXT NOT NULL DEFAULT '',
				sort_order  INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (campaign_id, id)
			);

			CREATE INDEX IF NOT EXISTS flow_edges_campaign_idx ON flow_edges(campaign_id);
		`,
	}
}
