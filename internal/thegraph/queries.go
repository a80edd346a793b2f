package thegraph

const assetFields = `
  id
  type
  name
  symbol
  decimals
  totalSupply
  paused
  creator { id }
  holderCount
  creationTimestamp
  bond {
    faceValue
    maturityDate
    underlyingAsset { id }
    cap
    isMatured
    yieldSchedule { id startDate endDate rate interval totalClaimed unclaimedYield }
  }
  equity { equityClass equityCategory }
  fund { fundClass fundCategory managementFeeBps }
  collateral { collateral liveness lastUpdated }
`

const listAssetsQuery = `
query ListAssets($first: Int!, $skip: Int!, $where: Asset_filter) {
  assets(first: $first, skip: $skip, where: $where, orderBy: creationTimestamp, orderDirection: desc) {` + assetFields + `}
}`

const getAssetQuery = `
query GetAsset($id: ID!) {
  asset(id: $id) {` + assetFields + `}
}`

const holdersQuery = `
query Holders($asset: String!, $first: Int!, $skip: Int!) {
  assetBalances(first: $first, skip: $skip, where: { asset: $asset }, orderBy: value, orderDirection: desc) {
    account { id }
    asset { id }
    value
    frozen
    isBlocked
    lastActivity
  }
}`

const accountBalancesQuery = `
query AccountBalances($account: String!, $first: Int!, $skip: Int!) {
  assetBalances(first: $first, skip: $skip, where: { account: $account }, orderBy: value, orderDirection: desc) {
    account { id }
    value
    frozen
    isBlocked
    lastActivity
    asset {` + assetFields + `}
  }
}`

const eventsQuery = `
query Events($asset: String!, $first: Int!) {
  events(first: $first, where: { emitter: $asset }, orderBy: blockTimestamp, orderDirection: desc) {
    id
    eventName
    emitter { id }
    sender { id }
    transactionHash
    blockTimestamp
    values { name value }
  }
}`

const statsQuery = `
query Stats($asset: String!, $since: Timestamp!) {
  assetStats: assetStats_collection(interval: hour, where: { asset: $asset, timestamp_gte: $since }) {
    timestamp
    totalSupply
    minted
    burned
    transferred
    count
  }
}`

const actionsQuery = `
query Actions($account: String!, $first: Int!, $skip: Int!) {
  actions(first: $first, skip: $skip, where: { executors_contains: [$account] }, orderBy: activeAt, orderDirection: asc) {
    id
    name
    type
    target { id }
    activeAt
    expiresAt
    executed
    executedAt
    executedBy { id }
    executors { id }
  }
}`

const identityQuery = `
query Identity($account: String!) {
  identities(first: 1, where: { account: $account }) {
    id
    account { id }
    claims {
      id
      name
      topic
      issuer { id }
      revoked
      values { key value }
    }
  }
}`

const airdropFields = `
  id
  type
  token { id }
  owner { id }
  merkleRoot
  startTime
  endTime
  totalClaimed
  recipientCount
`

const airdropsQuery = `
query Airdrops($asset: String!, $first: Int!, $skip: Int!) {
  airdrops(first: $first, skip: $skip, where: { token: $asset }) {` + airdropFields + `}
}`

const airdropsForRecipientQuery = `
query AirdropsForRecipient($account: String!, $first: Int!, $skip: Int!) {
  airdropRecipients(first: $first, skip: $skip, where: { recipient: $account }) {
    airdrop {` + airdropFields + `}
  }
}`
