package sqlinline

// Provider API keys stored by cmd/providerkey; one row per provider.

const QSelectIntegrationToken = `--sql 3f1c2b7e-58a4-4d0e-9c61-0d7e2a4b9f15
select token
from integration_tokens
where provider = $1::text;
`

const QUpsertIntegrationToken = `--sql c4e81d90-2b6f-4a57-8e3d-71f5a0c9b268
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update
set token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
