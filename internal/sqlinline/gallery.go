package sqlinline

const QInsertGalleryPost = `--sql fdb6f8d5-096c-4e44-90a6-94aa2ff6fef5
insert into gallery_posts (id, user_id, title, media_type, media_url, storage_key, prompt, generation_id, analysis, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, nullif($6::text, ''), nullif($7::text, ''), nullif($8::text, ''), $9::jsonb, now())
returning created_at;
`

const QListGalleryPosts = `--sql 204ba148-9c98-4cfa-b294-6935d592ac7d
select id::text, user_id, title, media_type, media_url,
       coalesce(storage_key, ''), coalesce(prompt, ''), coalesce(generation_id, ''),
       analysis, created_at
from gallery_posts
order by created_at desc, id desc
limit $1::int offset $2::int;
`

const QCountGalleryPosts = `--sql 27d4a7e8-6c53-4043-8a4b-7eb029c5d27b
select count(*) from gallery_posts;
`

const QDeleteGalleryPost = `--sql b9788940-2642-441a-8ebc-a84f6b4da42f
delete from gallery_posts
where id = $1::uuid and user_id = $2::text
returning coalesce(storage_key, '');
`
