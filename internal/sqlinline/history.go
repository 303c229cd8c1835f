package sqlinline

const QEnsureHistorySchema = `--sql ae0f6faa-afee-456e-a36b-00ead1a5d768
create table if not exists edit_history (
  id uuid primary key,
  session_id text not null,
  image_url text not null,
  storage_key text not null,
  prompt text not null,
  mime text not null,
  bytes bigint not null default 0,
  created_at timestamptz not null default now()
);
create index if not exists edit_history_session_created_idx
  on edit_history (session_id, created_at desc);
`

const QInsertHistoryItem = `--sql 129ec659-aae8-4f94-b524-05fc38967ae4
insert into edit_history(
  id,
  session_id,
  image_url,
  storage_key,
  prompt,
  mime,
  bytes,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::bigint,
  $8::timestamptz
);
`

const QListHistoryBySession = `--sql 9acebfa2-d221-4670-ade9-a6e9c33d95e6
select
  id::text,
  session_id,
  image_url,
  storage_key,
  prompt,
  mime,
  bytes,
  created_at
from edit_history
where session_id = $1::text
order by created_at desc, id desc
limit $2::int;
`

const QSelectHistoryItem = `--sql 0d73b162-d07f-4616-8f43-372df156e0f5
select
  id::text,
  session_id,
  image_url,
  storage_key,
  prompt,
  mime,
  bytes,
  created_at
from edit_history
where id = $1::uuid
limit 1;
`
