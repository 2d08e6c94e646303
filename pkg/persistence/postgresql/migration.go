package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow graph schema: workflows own nodes and connections.
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner ON workflows(owner);
			CREATE INDEX idx_workflows_updated_at ON workflows(updated_at);

			-- Node identifiers are client-generated and only unique per
			-- workflow, hence the composite primary key.
			CREATE TABLE workflow_nodes (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL CHECK (node_type IN ('INITIAL', 'MANUAL_TRIGGER', 'HTTP_REQUEST')),
				name VARCHAR(255) NOT NULL DEFAULT '',
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				data JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_workflow_id ON workflow_nodes(workflow_id);
			CREATE INDEX idx_workflow_nodes_type ON workflow_nodes(node_type);

			-- Composite foreign keys keep connection endpoints inside the
			-- same workflow as the connection itself.
			CREATE TABLE workflow_connections (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(255) NOT NULL DEFAULT 'main',
				target_handle VARCHAR(255) NOT NULL DEFAULT 'main',
				name VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id),
				FOREIGN KEY (workflow_id, source_node_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE,
				FOREIGN KEY (workflow_id, target_node_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE
			);

			CREATE INDEX idx_workflow_connections_workflow_id ON workflow_connections(workflow_id);
			CREATE INDEX idx_workflow_connections_source ON workflow_connections(source_node_id);
			CREATE INDEX idx_workflow_connections_target ON workflow_connections(target_node_id);
			CREATE UNIQUE INDEX idx_workflow_connections_unique ON workflow_connections(workflow_id, source_node_id, source_handle, target_node_id, target_handle);
		`,
	}
}
