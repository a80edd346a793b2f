package hasura

const assetMetadataQuery = `
query AssetMetadata($id: String!) {
  asset_by_pk(id: $id) { id private isin value_in_base_currency }
}`

const assetMetadataBatchQuery = `
query AssetMetadataBatch($ids: [String!]!) {
  asset(where: { id: { _in: $ids } }) { id private isin value_in_base_currency }
}`

const upsertAssetMetadataMutation = `
mutation UpsertAssetMetadata($object: asset_insert_input!) {
  insert_asset_one(
    object: $object
    on_conflict: { constraint: asset_pkey, update_columns: [private, isin, value_in_base_currency] }
  ) { id }
}`

const regulationConfigFields = `
  id
  asset_id
  regulation_type
  status
  reserve_status
  last_audit_date
  created_at
  updated_at
  documents(order_by: { uploaded_at: desc }) {
    id
    kind
    file_name
    content_type
    size
    object_key
    uploaded_by
    uploaded_at
  }
`

const regulationConfigsQuery = `
query RegulationConfigs($asset: String!) {
  regulation_configs(where: { asset_id: { _eq: $asset } }) {` + regulationConfigFields + `}
}`

const upsertRegulationConfigMutation = `
mutation UpsertRegulationConfig($object: regulation_configs_insert_input!) {
  insert_regulation_configs_one(
    object: $object
    on_conflict: { constraint: regulation_configs_asset_id_regulation_type_key, update_columns: [status, reserve_status, last_audit_date, updated_at] }
  ) {` + regulationConfigFields + `}
}`

const addRegulationDocumentMutation = `
mutation AddRegulationDocument($object: regulation_documents_insert_input!) {
  insert_regulation_documents_one(object: $object) { id }
}`

const removeRegulationDocumentMutation = `
mutation RemoveRegulationDocument($id: String!) {
  delete_regulation_documents_by_pk(id: $id) { id }
}`
