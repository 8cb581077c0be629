package stash

const studioFields = `
  id
  name
  aliases
  url
  image_path
  parent_studio { id }
  stash_ids { endpoint stash_id }
`

const allStudiosQuery = `query AllStudios {
  findStudios(filter: { per_page: -1, sort: "id", direction: ASC }) {
    count
    studios {` + studioFields + `}
  }
}`

const findStudioQuery = `query FindStudio($id: ID!) {
  findStudio(id: $id) {` + studioFields + `}
}`

const findByStashIDQuery = `query FindStudiosByStashID($endpoint: String!, $stash_id: String!) {
  findStudios(
    studio_filter: { stash_id_endpoint: { endpoint: $endpoint, stash_id: $stash_id, modifier: EQUALS } }
    filter: { per_page: -1 }
  ) {
    studios {` + studioFields + `}
  }
}`

const findByNameQuery = `query FindStudiosByName($name: String!) {
  findStudios(
    studio_filter: { name: { value: $name, modifier: INCLUDES } }
    filter: { per_page: -1 }
  ) {
    studios {` + studioFields + `}
  }
}`

const studioCreateMutation = `mutation StudioCreate($input: StudioCreateInput!) {
  studioCreate(input: $input) {` + studioFields + `}
}`

const studioUpdateMutation = `mutation StudioUpdate($input: StudioUpdateInput!) {
  studioUpdate(input: $input) {` + studioFields + `}
}`

const studioDestroyMutation = `mutation StudioDestroy($id: ID!) {
  studioDestroy(input: { id: $id })
}`

const configurationQuery = `query Configuration {
  configuration {
    general {
      stashBoxes { endpoint api_key name }
    }
  }
}`
