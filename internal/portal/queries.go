package portal

const createWalletMutation = `
mutation CreateWallet($keyVaultId: String!, $name: String!) {
  createWallet(keyVaultId: $keyVaultId, walletInfo: { name: $name }) {
    address
  }
}`

const createWalletVerificationMutation = `
mutation CreateWalletVerification($userWalletAddress: String!, $verificationInfo: CreateWalletVerificationInput!) {
  createWalletVerification(userWalletAddress: $userWalletAddress, verificationInfo: $verificationInfo) {
    id
    name
    parameters
    verificationType
  }
}`

const deleteWalletVerificationMutation = `
mutation DeleteWalletVerification($userWalletAddress: String!, $verificationId: String!) {
  deleteWalletVerification(userWalletAddress: $userWalletAddress, verificationId: $verificationId) {
    success
  }
}`

const createVerificationChallengesMutation = `
mutation CreateWalletVerificationChallenges($userWalletAddress: String!) {
  createWalletVerificationChallenges(userWalletAddress: $userWalletAddress) {
    id
    name
    verificationId
    verificationType
    challenge
  }
}`

const verifyChallengeMutation = `
mutation VerifyWalletVerificationChallenge($userWalletAddress: String!, $verificationId: String!, $challengeResponse: String!) {
  verifyWalletVerificationChallenge(userWalletAddress: $userWalletAddress, verificationId: $verificationId, challengeResponse: $challengeResponse) {
    verified
  }
}`

const getTransactionQuery = `
query GetTransaction($transactionHash: String!) {
  getTransaction(transactionHash: $transactionHash) {
    receipt {
      transactionHash
      status
      blockNumber
      gasUsed
      contractAddress
      revertReasonDecoded
    }
  }
}`

const watchTransactionSubscription = `
subscription WatchTransaction($transactionHash: String!) {
  getTransaction(transactionHash: $transactionHash) {
    receipt {
      transactionHash
      status
      blockNumber
      gasUsed
      contractAddress
      revertReasonDecoded
    }
  }
}`

// contractCallTemplate is expanded per Call: %[1]s is the mutation name.
const contractCallTemplate = `
mutation %[1]s($address: String!, $from: String!, $input: %[1]sInput!, $challengeId: String, $challengeResponse: String!, $verificationId: String) {
  %[1]s(address: $address, from: $from, input: $input, challengeId: $challengeId, challengeResponse: $challengeResponse, verificationId: $verificationId) {
    transactionHash
  }
}`
