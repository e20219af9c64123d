package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE profiles (
				id UUID PRIMARY KEY,
				company_name VARCHAR(255) NOT NULL DEFAULT '',
				phone_number_id VARCHAR(255) NOT NULL,
				access_token TEXT NOT NULL,
				webhook_prefix VARCHAR(64) NOT NULL UNIQUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE contacts (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL REFERENCES profiles(id),
				name VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(32) NOT NULL,
				email VARCHAR(255),
				company VARCHAR(255),
				tags JSONB NOT NULL DEFAULT '[]',
				custom_fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (owner_id, phone)
			);

			CREATE INDEX idx_contacts_owner_phone ON contacts(owner_id, phone);

			CREATE TABLE message_templates (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL REFERENCES profiles(id),
				name VARCHAR(255) NOT NULL,
				language VARCHAR(16) NOT NULL DEFAULT 'en',
				components JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL REFERENCES profiles(id),
				name VARCHAR(255) NOT NULL,
				status VARCHAR(16) NOT NULL CHECK (status IN ('active', 'paused')),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_owner ON automations(owner_id);
			CREATE INDEX idx_automations_status ON automations(status);

			CREATE TABLE automation_runs (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				contact_id UUID,
				status VARCHAR(16) NOT NULL CHECK (status IN ('running', 'success', 'failed')),
				details TEXT NOT NULL DEFAULT '',
				run_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_automation_runs_automation ON automation_runs(automation_id);
			CREATE INDEX idx_automation_runs_run_at ON automation_runs(run_at);

			CREATE TABLE automation_node_stats (
				automation_id UUID NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				success_count INTEGER NOT NULL DEFAULT 0,
				error_count INTEGER NOT NULL DEFAULT 0,
				last_run_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (automation_id, node_id)
			);

			CREATE TABLE automation_node_logs (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				status VARCHAR(16) NOT NULL,
				details TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_automation_node_logs_node ON automation_node_logs(node_id, created_at);

			CREATE TABLE automation_trigger_index (
				owner_id UUID NOT NULL,
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(64) NOT NULL,
				key VARCHAR(255) NOT NULL DEFAULT '',
				PRIMARY KEY (automation_id, node_id)
			);

			CREATE INDEX idx_trigger_index_type_key ON automation_trigger_index(trigger_type, key);
			CREATE INDEX idx_trigger_index_owner_type ON automation_trigger_index(owner_id, trigger_type);
		`,
	}
}
